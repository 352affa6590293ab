package alert

import (
	"github.com/samber/do/v2"
	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/identity"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*alert.Hub, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return alert.NewHub(cfg.AlertBufferSize), nil
	})
	do.Provide(injector, func(i do.Injector) (alert.Broadcaster, error) {
		return do.MustInvoke[*alert.Hub](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*WebSocketHandler, error) {
		return NewWebSocketHandler(
			do.MustInvoke[*alert.Hub](i),
			do.MustInvoke[identity.Resolver](i),
		), nil
	})
}
