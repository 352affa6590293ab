package provider

import (
	"github.com/samber/do/v2"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/provider"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (provider.TranscriptProvider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewHTTPProvider(cfg.TranscriptProviderURL, cfg.ProviderFetchTimeout), nil
	})
}
