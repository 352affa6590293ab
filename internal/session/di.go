package session

import (
	"github.com/samber/do/v2"
	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/cache"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/provider"
	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Coordinator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		broadcaster := do.MustInvoke[alert.Broadcaster](i)
		sessionCache := do.MustInvoke[cache.SessionCache](i)
		return NewCoordinator(cfg, repo, broadcaster, sessionCache), nil
	})
	do.Provide(injector, func(i do.Injector) (*Finalizer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		transcripts := do.MustInvoke[provider.TranscriptProvider](i)
		broadcaster := do.MustInvoke[alert.Broadcaster](i)
		sessionCache := do.MustInvoke[cache.SessionCache](i)
		summaries := do.MustInvoke[webhook.Sender](i)
		return NewFinalizer(cfg, repo, transcripts, broadcaster, sessionCache, summaries), nil
	})
}
