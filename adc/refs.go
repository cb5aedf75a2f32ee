package adc

// RefKind tells how an application references another one.
type RefKind int

const (
	// RefName is a bare name binding, e.g. -lbvserver.
	RefName RefKind = iota

	// RefPolicy is the -targetLBVserver of a policy binding.
	RefPolicy

	// RefAction is a target virtual server named by the action of a bound
	// policy.
	RefAction

	// RefBackup is the -backupVServer option of the application.
	RefBackup
)

var refKindNames = map[RefKind]string{
	RefName:   "-lbvserver",
	RefPolicy: "-targetLBVserver",
	RefAction: "action target",
	RefBackup: "-backupVServer",
}

func (k RefKind) String() string {
	return refKindNames[k]
}

// Ref is a reference to another application by name.
type Ref struct {
	Kind   RefKind
	Target string

	// Binding is set for RefPolicy and RefAction.
	Binding *PolicyBinding
}

// flags of actions naming a virtual server
var actionTargetFlags = []string{"-targetLBVserver", "-targetVserver"}

// Refs returns the references of the application to other applications,
// in binding order. Bare name bindings come first, then the policy
// bindings and finally the backup server.
func (a *App) Refs() []Ref {
	if a == nil {
		return nil
	}

	var refs []Ref
	if b := a.Bindings; b != nil {
		for _, n := range b.LBVservers {
			refs = append(refs, Ref{Kind: RefName, Target: n})
		}

		for _, p := range b.Policies {
			if p.TargetLBVserver != "" {
				refs = append(refs, Ref{Kind: RefPolicy, Target: p.TargetLBVserver, Binding: p})
			}

			if p.Action == nil {
				continue
			}

			for _, f := range actionTargetFlags {
				if t := p.Action.Options[f]; t != "" {
					refs = append(refs, Ref{Kind: RefAction, Target: t, Binding: p})
				}
			}
		}
	}

	if t := a.Options["-backupVServer"]; t != "" {
		refs = append(refs, Ref{Kind: RefBackup, Target: t})
	}

	return refs
}
