package request

// Navigator performs client-side route transitions.
type Navigator interface {
	GoTo(path, reason string)
}

// Notifier surfaces user-visible messages.
type Notifier interface {
	Error(msg string)
	Loading(msg string)
}

// EffectKind identifies what an Effect asks the boundary to do.
type EffectKind int

const (
	// EffectRedirect sends the user to Effect.Path with Effect.Reason.
	EffectRedirect EffectKind = iota + 1
	// EffectNotify shows Effect.Message as an error.
	EffectNotify
)

func (k EffectKind) String() string {
	switch k {
	case EffectRedirect:
		return "redirect"
	case EffectNotify:
		return "notify"
	default:
		return "none"
	}
}

// Effect is a side effect requested by a pipeline stage or the classifier.
// Stages return effects as values; only the Effector executes them.
type Effect struct {
	Kind    EffectKind
	Path    string // redirect target
	Reason  string // redirect reason shown on the login surface
	Message string // notification text
}

// RedirectTo builds a redirect effect.
func RedirectTo(path, reason string) Effect {
	return Effect{Kind: EffectRedirect, Path: path, Reason: reason}
}

// NotifyError builds an error notification effect.
func NotifyError(msg string) Effect {
	return Effect{Kind: EffectNotify, Message: msg}
}

// Effector executes effects against the injected collaborators.
// Nil collaborators silently drop their effects.
type Effector struct {
	Navigator Navigator
	Notifier  Notifier
}

// Run executes effects in order.
func (e Effector) Run(effects []Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case EffectRedirect:
			if e.Navigator != nil {
				e.Navigator.GoTo(eff.Path, eff.Reason)
			}
		case EffectNotify:
			if e.Notifier != nil {
				e.Notifier.Error(eff.Message)
			}
		}
	}
}
