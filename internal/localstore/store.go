// Package localstore is the offline fallback behind the progress facade: one
// in-memory JSON document per owner, optionally persisted to disk. It shares
// the rollup formula and snapshot codec with the database implementation, so
// both report identical percentages for identical toggle histories.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/progress"
	"github.com/pathbyte/pathbyte-backend/internal/requestdata"
	"github.com/pathbyte/pathbyte-backend/internal/services"
	"github.com/pathbyte/pathbyte-backend/internal/snapshot"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

type ownerState struct {
	Doc snapshot.Document `json:"doc"`
	// SubSkills is keyed "roleId/tierId/skill/subSkill". Sub-skill rows are
	// annotations and never feed the rollup.
	SubSkills map[string]snapshot.ItemState `json:"subSkills"`
}

// Store implements the progress facade without a database. Every mutation
// updates the item state and its derived percentages under one lock, so a
// reader can never observe a toggle without its rollup.
type Store struct {
	mu    sync.Mutex
	log   *logger.Logger
	path  string
	state map[uuid.UUID]*ownerState
}

var _ services.ProgressService = (*Store)(nil)

// New creates a store. A non-empty path enables persistence: state is loaded
// from it at startup and rewritten atomically after every mutation.
func New(log *logger.Logger, path string) (*Store, error) {
	s := &Store{
		log:   log.With("service", "LocalStore"),
		path:  path,
		state: make(map[uuid.UUID]*ownerState),
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read local store: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &s.state); err != nil {
		return fmt.Errorf("parse local store: %w", err)
	}
	return nil
}

// persist is called with s.mu held. Write-then-rename so a crash mid-write
// never leaves a truncated store on disk.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create local store dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

func ownerFromContext(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("unauthorized")
	}
	return rd.UserID, nil
}

func validateItemKey(roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) error {
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(tierID) == "" {
		return apierr.InvalidArgument("roleId and tierId required")
	}
	if !itemType.Valid() {
		return apierr.InvalidArgument("unknown item type %q", itemType)
	}
	if itemIndex < 0 {
		return apierr.InvalidArgument("item index must be >= 0, got %d", itemIndex)
	}
	return nil
}

// owner is called with s.mu held.
func (s *Store) owner(userID uuid.UUID) *ownerState {
	st, ok := s.state[userID]
	if !ok {
		st = &ownerState{
			Doc:       make(snapshot.Document),
			SubSkills: make(map[string]snapshot.ItemState),
		}
		s.state[userID] = st
	}
	if st.Doc == nil {
		st.Doc = make(snapshot.Document)
	}
	if st.SubSkills == nil {
		st.SubSkills = make(map[string]snapshot.ItemState)
	}
	return st
}

// tier is called with s.mu held and materializes the role/tier pair.
func (st *ownerState) tier(roleID, tierID string) snapshot.TierSnapshot {
	role, ok := st.Doc[roleID]
	if !ok {
		role = snapshot.RoleSnapshot{TierProgress: make(map[string]snapshot.TierSnapshot)}
		st.Doc[roleID] = role
	}
	tier, ok := role.TierProgress[tierID]
	if !ok {
		tier = snapshot.TierSnapshot{
			Skills:        []*snapshot.ItemState{},
			Projects:      []*snapshot.ItemState{},
			FreeResources: []*snapshot.ItemState{},
			PaidResources: []*snapshot.ItemState{},
		}
		role.TierProgress[tierID] = tier
	}
	return tier
}

func (st *ownerState) putTier(roleID, tierID string, tier snapshot.TierSnapshot) {
	role := st.Doc[roleID]
	role.TierProgress[tierID] = tier
	st.Doc[roleID] = role
}

func subSkillKey(roleID, tierID, skillName, subSkillName string) string {
	return roleID + "/" + tierID + "/" + skillName + "/" + subSkillName
}

func (s *Store) ToggleItem(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int, completed bool, notes *string) (int, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateItemKey(roleID, tierID, itemType, itemIndex); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.owner(userID)
	tier := st.tier(roleID, tierID)
	items := tier.Items(itemType)
	for len(items) <= itemIndex {
		items = append(items, nil)
	}
	state := snapshot.ItemState{Completed: completed}
	if notes != nil {
		state.Notes = *notes
	} else if items[itemIndex] != nil {
		state.Notes = items[itemIndex].Notes
	}
	items[itemIndex] = &state
	tier.SetItems(itemType, items)

	tier.Percentage = progress.ComputeCompletion(tier.Flags())
	st.putTier(roleID, tierID, tier)
	st.Doc.Recompute()

	if err := s.persist(); err != nil {
		return 0, err
	}
	return tier.Percentage, nil
}

func (s *Store) GetTierProgress(ctx context.Context, roleID, tierID string) (int, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[userID]
	if !ok {
		return 0, nil
	}
	role, ok := st.Doc[roleID]
	if !ok {
		return 0, nil
	}
	return role.TierProgress[tierID].Percentage, nil
}

func (s *Store) GetItemProgress(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) (bool, error) {
	state, err := s.GetItemState(ctx, roleID, tierID, itemType, itemIndex)
	if err != nil {
		return false, err
	}
	return state.Completed, nil
}

func (s *Store) GetItemState(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) (snapshot.ItemState, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return snapshot.ItemState{}, err
	}
	if err := validateItemKey(roleID, tierID, itemType, itemIndex); err != nil {
		return snapshot.ItemState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[userID]
	if !ok {
		return snapshot.ItemState{}, nil
	}
	role, ok := st.Doc[roleID]
	if !ok {
		return snapshot.ItemState{}, nil
	}
	items := role.TierProgress[tierID].Items(itemType)
	if itemIndex >= len(items) || items[itemIndex] == nil {
		return snapshot.ItemState{}, nil
	}
	return *items[itemIndex], nil
}

func (s *Store) ListTierItems(ctx context.Context, roleID, tierID string) ([]*types.RoadmapItemProgress, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*types.RoadmapItemProgress{}
	st, ok := s.state[userID]
	if !ok {
		return out, nil
	}
	role, ok := st.Doc[roleID]
	if !ok {
		return out, nil
	}
	tier := role.TierProgress[tierID]
	for _, itemType := range types.AllRoadmapItemTypes {
		for idx, state := range tier.Items(itemType) {
			if state == nil {
				continue
			}
			out = append(out, &types.RoadmapItemProgress{
				ItemType:  itemType,
				ItemIndex: idx,
				Completed: state.Completed,
				Notes:     state.Notes,
			})
		}
	}
	return out, nil
}

func (s *Store) SetSubSkillNote(ctx context.Context, roleID, tierID, skillName, subSkillName string, completed bool, notes string) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(tierID) == "" {
		return apierr.InvalidArgument("roleId and tierId required")
	}
	skillName = strings.TrimSpace(skillName)
	subSkillName = strings.TrimSpace(subSkillName)
	if skillName == "" || subSkillName == "" {
		return apierr.InvalidArgument("skill and subSkill names required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.owner(userID)
	st.SubSkills[subSkillKey(roleID, tierID, skillName, subSkillName)] = snapshot.ItemState{
		Completed: completed,
		Notes:     notes,
	}
	return s.persist()
}

func (s *Store) GetSubSkillNote(ctx context.Context, roleID, tierID, skillName, subSkillName string) (snapshot.ItemState, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return snapshot.ItemState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[userID]
	if !ok {
		return snapshot.ItemState{}, nil
	}
	return st.SubSkills[subSkillKey(roleID, tierID, strings.TrimSpace(skillName), strings.TrimSpace(subSkillName))], nil
}

func (s *Store) ExportSnapshot(ctx context.Context) (snapshot.Document, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[userID]
	if !ok {
		return make(snapshot.Document), nil
	}
	// Deep copy through the codec so callers cannot mutate live state.
	raw, err := snapshot.Encode(st.Doc)
	if err != nil {
		return nil, err
	}
	doc, err := snapshot.Decode(raw)
	if err != nil {
		return nil, err
	}
	doc.Recompute()
	return doc, nil
}

func (s *Store) ImportSnapshot(ctx context.Context, raw []byte) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	doc, err := snapshot.Decode(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.owner(userID)
	// Replace every tier the document names; leave absent tiers and all
	// sub-skill notes alone.
	for roleID, incoming := range doc {
		role, ok := st.Doc[roleID]
		if !ok {
			role = snapshot.RoleSnapshot{TierProgress: make(map[string]snapshot.TierSnapshot)}
		}
		for tierID, tier := range incoming.TierProgress {
			role.TierProgress[tierID] = tier
		}
		st.Doc[roleID] = role
	}
	st.Doc.Recompute()
	return s.persist()
}

func (s *Store) ResetTier(ctx context.Context, roleID, tierID string) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(tierID) == "" {
		return apierr.InvalidArgument("roleId and tierId required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[userID]
	if !ok {
		return nil
	}
	role, ok := st.Doc[roleID]
	if !ok {
		return nil
	}
	role.TierProgress[tierID] = snapshot.TierSnapshot{
		Skills:        []*snapshot.ItemState{},
		Projects:      []*snapshot.ItemState{},
		FreeResources: []*snapshot.ItemState{},
		PaidResources: []*snapshot.ItemState{},
	}
	st.Doc[roleID] = role
	st.Doc.Recompute()
	return s.persist()
}
