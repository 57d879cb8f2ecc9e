package indicator

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notifyService = "org.freedesktop.Notifications"
	notifyPath    = dbus.ObjectPath("/org/freedesktop/Notifications")
)

// desktopBus delivers freedesktop notifications over the session bus.
type desktopBus interface {
	Notify(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error)
	Close(ctx context.Context, id uint32) error
}

type sessionBus struct{}

func (sessionBus) object() (dbus.BusObject, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn.Object(notifyService, notifyPath), nil
}

// Notify returns the notification ID assigned by the server.
func (b sessionBus) Notify(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error) {
	obj, err := b.object()
	if err != nil {
		return 0, err
	}
	var id uint32
	call := obj.CallWithContext(ctx, notifyService+".Notify", 0,
		appName,
		replaceID,
		"",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		int32(timeoutMS),
	)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", err)
	}
	return id, nil
}

func (b sessionBus) Close(ctx context.Context, id uint32) error {
	obj, err := b.object()
	if err != nil {
		return err
	}
	if err := obj.CallWithContext(ctx, notifyService+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", err)
	}
	return nil
}
