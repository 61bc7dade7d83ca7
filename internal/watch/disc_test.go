package watch

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"spatialrip/internal/logging"
)

func discEvent(action netlink.KObjAction, env map[string]string) netlink.UEvent {
	base := map[string]string{"SUBSYSTEM": "block", "ID_CDROM": "1", "ID_CDROM_MEDIA": "1"}
	for k, v := range env {
		base[k] = v
	}
	return netlink.UEvent{Action: action, Env: base}
}

func TestNewDiscWatcherRequiresDevice(t *testing.T) {
	if NewDiscWatcher("  ", logging.NewNop()) != nil {
		t.Fatal("expected nil watcher for empty device")
	}
	if w := NewDiscWatcher("/dev/sr0", logging.NewNop()); w == nil || w.Device() != "/dev/sr0" {
		t.Fatalf("unexpected watcher %+v", w)
	}
}

func TestMatcher(t *testing.T) {
	matcher := Matcher()
	tests := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{name: "change", event: discEvent(netlink.CHANGE, nil), want: true},
		{name: "add", event: discEvent(netlink.ADD, nil), want: true},
		{name: "remove", event: discEvent(netlink.REMOVE, nil), want: false},
		{name: "no media", event: netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"SUBSYSTEM": "block", "ID_CDROM": "1"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.Evaluate(tt.event); got != tt.want {
				t.Fatalf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccept(t *testing.T) {
	w := NewDiscWatcher("/dev/sr0", logging.NewNop())
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{name: "devname", env: map[string]string{"DEVNAME": "/dev/sr0"}, want: true},
		{name: "bare devname", env: map[string]string{"DEVNAME": "sr0"}, want: true},
		{name: "devpath", env: map[string]string{"DEVPATH": "/devices/pci0000:00/ata1/host0/block/sr0"}, want: true},
		{name: "other drive", env: map[string]string{"DEVNAME": "/dev/sr1"}, want: false},
		{name: "no name", env: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Accept(netlink.UEvent{Action: netlink.CHANGE, Env: tt.env}); got != tt.want {
				t.Fatalf("Accept = %v, want %v", got, tt.want)
			}
		})
	}
}
