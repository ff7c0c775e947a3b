package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thereceipt/label-engine/internal/printer"
)

func tempRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "printers.json")
	reg, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return reg, path
}

func TestNew(t *testing.T) {
	reg, _ := tempRegistry(t)
	if reg == nil {
		t.Fatal("Registry is nil")
	}
	if len(reg.All()) != 0 {
		t.Error("Expected empty registry")
	}
}

func TestNew_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.json")
	os.WriteFile(path, []byte("{not json"), 0644)

	if _, err := New(path); err == nil {
		t.Error("Expected error for corrupt registry file")
	}
}

func TestAdd_SameTargetKeepsID(t *testing.T) {
	reg, _ := tempRegistry(t)

	first, err := reg.Add("shelf", "192.168.1.50", "Zebra ZT230")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if first.ID == "" {
		t.Error("Expected non-empty printer ID")
	}
	if first.Target != "tcp://192.168.1.50:9100" {
		t.Errorf("Expected normalized target, got %s", first.Target)
	}

	// Same printer spelled differently
	second, err := reg.Add("aisle-3", "tcp://192.168.1.50:9100", "")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected same ID for same printer: %s != %s", first.ID, second.ID)
	}
	if second.Name != "aisle-3" {
		t.Errorf("Expected rename to aisle-3, got %s", second.Name)
	}
	if second.Description != "Zebra ZT230" {
		t.Errorf("Expected description to be kept, got %q", second.Description)
	}
	if len(reg.All()) != 1 {
		t.Errorf("Expected 1 printer, got %d", len(reg.All()))
	}
}

func TestAdd_Errors(t *testing.T) {
	reg, _ := tempRegistry(t)

	if _, err := reg.Add("", "10.0.0.1", ""); err == nil {
		t.Error("Expected error for empty name")
	}
	if _, err := reg.Add("bad", "ftp://10.0.0.1", ""); !errors.Is(err, printer.ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget, got %v", err)
	}

	reg.Add("rfid", "serial:///dev/ttyUSB0", "")
	if _, err := reg.Add("RFID", "10.0.0.9", ""); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected ErrNameTaken, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	reg, _ := tempRegistry(t)
	entry, _ := reg.Add("Backroom", "serial:///dev/ttyUSB0?baud=19200", "")

	want := printer.Target{Kind: printer.KindSerial, Path: "/dev/ttyUSB0", Baud: 19200}

	for _, key := range []string{"Backroom", "backroom", entry.ID} {
		got, err := reg.Resolve(key)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", key, err)
		}
		if got != want {
			t.Errorf("Resolve(%q) = %+v, want %+v", key, got, want)
		}
	}

	// Unknown names fall through to address parsing
	got, err := reg.Resolve("10.0.0.7:6101")
	if err != nil {
		t.Fatalf("Resolve address failed: %v", err)
	}
	if got.Host != "10.0.0.7" || got.Port != 6101 {
		t.Errorf("Unexpected target %+v", got)
	}
}

func TestRemove(t *testing.T) {
	reg, _ := tempRegistry(t)
	reg.Add("shelf", "10.0.0.1", "")

	if err := reg.Remove("shelf"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := reg.Remove("shelf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Get("shelf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAll_SortedByName(t *testing.T) {
	reg, _ := tempRegistry(t)
	reg.Add("zeta", "10.0.0.3", "")
	reg.Add("alpha", "10.0.0.1", "")
	reg.Add("mid", "file:///dev/usb/lp0", "")

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("Expected 3 printers, got %d", len(all))
	}
	for i, name := range []string{"alpha", "mid", "zeta"} {
		if all[i].Name != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, all[i].Name)
		}
	}
}

func TestPersistence(t *testing.T) {
	reg, path := tempRegistry(t)
	entry, _ := reg.Add("shelf", "10.0.0.1", "Front shelf")

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("Failed to reload registry: %v", err)
	}

	got, err := reloaded.Get("shelf")
	if err != nil {
		t.Fatalf("Get after reload failed: %v", err)
	}
	if got.ID != entry.ID || got.Description != "Front shelf" {
		t.Errorf("Reloaded entry mismatch: %+v vs %+v", got, entry)
	}
}

func TestInMemory(t *testing.T) {
	reg, err := New("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	if _, err := reg.Add("shelf", "10.0.0.1", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := reg.Get("shelf"); err != nil {
		t.Errorf("Get failed: %v", err)
	}
}
