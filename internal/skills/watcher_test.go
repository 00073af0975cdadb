package skills

import (
	"testing"
	"time"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "greet", greetManifest)

	r := NewRegistry(root)
	if _, err := r.Scan(); err != nil {
		t.Fatal(err)
	}
	if len(r.List()) != 1 {
		t.Fatalf("skills = %v", r.List())
	}

	w, err := NewWatcher(r)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeSkill(t, root, "extra", "name: extra\ntype: pure-prompt\nprompt_template: x\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(r.List()) == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("registry never picked up the new skill: %v", r.List())
}

func TestWatcherReloadsOnManifestEdit(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "greet", greetManifest)

	r := NewRegistry(root)
	if _, err := r.Scan(); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(r)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// edit the manifest in place inside the skill's subdirectory
	writeSkill(t, root, "greet", "name: greet\ntype: pure-prompt\ndescription: edited\nprompt_template: x\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if meta, ok := r.Get("greet"); ok && meta.Description == "edited" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	meta, _ := r.Get("greet")
	t.Errorf("registry never picked up the manifest edit: %+v", meta)
}

func TestWatcherCoversDirsCreatedAfterStart(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "greet", greetManifest)

	r := NewRegistry(root)
	if _, err := r.Scan(); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(r)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeSkill(t, root, "extra", "name: extra\ntype: pure-prompt\ndescription: first\nprompt_template: x\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Get("extra"); ok {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if _, ok := r.Get("extra"); !ok {
		t.Fatal("new skill dir never scanned")
	}

	// the dir created after the watcher started must itself be watched now
	writeSkill(t, root, "extra", "name: extra\ntype: pure-prompt\ndescription: second\nprompt_template: x\n")

	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if meta, ok := r.Get("extra"); ok && meta.Description == "second" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	meta, _ := r.Get("extra")
	t.Errorf("edit inside a late-created skill dir never reloaded: %+v", meta)
}
