package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pilebones/go-udev/netlink"

	"spatialrip/internal/logging"
)

// DiscWatcher reports media insertions in one optical drive.
type DiscWatcher struct {
	device string
	logger *slog.Logger
}

// NewDiscWatcher constructs a watcher for device, or nil when device is empty.
func NewDiscWatcher(device string, logger *slog.Logger) *DiscWatcher {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &DiscWatcher{device: device, logger: logging.NewComponentLogger(logger, "disc-watch")}
}

// Device returns the watched device node.
func (w *DiscWatcher) Device() string { return w.device }

// Run listens until ctx is done, calling handle with the device node for each
// insertion. Events that arrive while handle runs are discarded.
func (w *DiscWatcher) Run(ctx context.Context, handle Handler) error {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("connect netlink socket: %w", err)
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, Matcher())
	defer close(quit)

	w.logger.Info("disc watch started",
		logging.String("device", w.device),
		logging.String(logging.FieldEventType, "disc_watch_started"),
	)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("disc watch stopped", logging.String(logging.FieldEventType, "disc_watch_stopped"))
			return nil
		case uevent := <-queue:
			if !w.Accept(uevent) {
				continue
			}
			handle(ctx, w.device)
			drain(queue)
		case err := <-errs:
			w.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "disc detection may be affected"),
			)
		}
	}
}

// Accept reports whether uevent announces media in the watched drive.
func (w *DiscWatcher) Accept(uevent netlink.UEvent) bool {
	devname := DeviceName(uevent)
	if devname == "" {
		w.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return false
	}
	if devname != w.device {
		w.logger.Debug("ignoring event for other device",
			logging.String("device", devname),
			logging.String("configured_device", w.device),
		)
		return false
	}
	w.logger.Info("disc media detected",
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)),
		logging.String(logging.FieldEventType, "disc_detected"),
	)
	return true
}

// Matcher selects optical media change and add events:
// SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1.
func Matcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

// DeviceName returns the device node a uevent refers to.
func DeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			return "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}

func drain(queue <-chan netlink.UEvent) {
	for {
		select {
		case <-queue:
		default:
			return
		}
	}
}
