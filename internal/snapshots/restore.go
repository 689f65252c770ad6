package snapshots

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/pkgsnap/internal/device"
)

// Planner computes the commands that converge a live device to a snapshot.
// It never runs them.
type Planner struct {
	store      *Store
	transition device.Transition
	log        zerolog.Logger
}

// NewPlanner creates a Planner reading snapshots through st and asking
// transition for the per-package commands. Both are required; ComputePlan
// reports a missing one as KindInvalid.
func NewPlanner(st *Store, transition device.Transition, opts ...Option) *Planner {
	o := buildOptions(opts)
	return &Planner{
		store:      st,
		transition: transition,
		log:        o.logger,
	}
}

// ComputePlan returns one entry per snapshot package that needs at least one
// command, followed by a trailing sentinel entry with no commands when the
// plan is non-empty. A device already matching the snapshot yields an empty
// plan.
//
// Every user in the snapshot must exist on the live device and every package
// must be present in that user's live inventory; the first miss aborts the
// whole computation and no partial plan is returned.
func (p *Planner) ComputePlan(sel Selection, live device.Device, inv device.Inventory) ([]PlanEntry, error) {
	if p.store == nil || p.transition == nil {
		return nil, &Error{Kind: KindInvalid, Err: errors.New("planner needs a snapshot store and a transition policy")}
	}
	if sel.Backup == nil {
		return nil, &Error{Kind: KindNoSelection, Selection: "backup"}
	}
	if sel.User == nil {
		return nil, &Error{Kind: KindNoSelection, Selection: "user"}
	}

	snap, err := p.store.Load(sel.Backup.Path)
	if err != nil {
		return nil, err
	}

	var plan []PlanEntry
	for _, us := range snap.Users {
		liveUser, ok := live.UserByID(us.ID)
		if !ok {
			return nil, &Error{Kind: KindUserNotFound, Path: sel.Backup.Path, UserID: us.ID}
		}

		for i, target := range us.Packages {
			pkg, ok := inv.Find(liveUser.Index, target.Name)
			if !ok {
				return nil, &Error{
					Kind:    KindPackageNotFound,
					Path:    sel.Backup.Path,
					UserID:  us.ID,
					Package: target.Name,
				}
			}

			cmds := p.transition.Commands(pkg, target.State, *sel.User, live)
			if len(cmds) == 0 {
				continue
			}
			plan = append(plan, PlanEntry{Index: i, Commands: cmds})
		}
	}

	if len(plan) == 0 {
		return []PlanEntry{}, nil
	}

	plan = append(plan, PlanEntry{Index: 0, Commands: []string{}})

	p.log.Debug().
		Str("backup", sel.Backup.Path).
		Str("device", live.ID).
		Int("entries", len(plan)-1).
		Int("commands", CommandCount(plan)).
		Msg("restore plan computed")

	return plan, nil
}
