package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
)

type memoryTables struct {
	users        map[uuid.UUID]model.User
	rooms        map[uuid.UUID]model.Room
	invites      map[uuid.UUID]model.Invite
	roomInvites  map[uuid.UUID]model.RoomInvite
	participants map[uuid.UUID]model.RoomParticipant
}

func newMemoryTables() *memoryTables {
	return &memoryTables{
		users:        make(map[uuid.UUID]model.User),
		rooms:        make(map[uuid.UUID]model.Room),
		invites:      make(map[uuid.UUID]model.Invite),
		roomInvites:  make(map[uuid.UUID]model.RoomInvite),
		participants: make(map[uuid.UUID]model.RoomParticipant),
	}
}

func cloneParticipant(p model.RoomParticipant) model.RoomParticipant {
	p.Permissions = slices.Clone(p.Permissions)
	return p
}

func (t *memoryTables) clone() *memoryTables {
	out := newMemoryTables()
	for k, v := range t.users {
		out.users[k] = v
	}
	for k, v := range t.rooms {
		out.rooms[k] = v
	}
	for k, v := range t.invites {
		out.invites[k] = v
	}
	for k, v := range t.roomInvites {
		out.roomInvites[k] = v
	}
	for k, v := range t.participants {
		out.participants[k] = cloneParticipant(v)
	}
	return out
}

// MemoryStore keeps every table in process. Transactions are serialised and
// work on a copy that replaces the live tables only on commit, so a failed
// transaction leaves no trace.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memoryTables
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryTables()}
}

func (s *MemoryStore) root() *memoryView { return &memoryView{store: s, t: s.data} }

func (s *MemoryStore) Users() UserRepository               { return s.root() }
func (s *MemoryStore) Rooms() RoomRepository               { return memoryRooms{s.root()} }
func (s *MemoryStore) Invites() InviteRepository           { return memoryInvites{s.root()} }
func (s *MemoryStore) Participants() ParticipantRepository { return memoryParticipants{s.root()} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memoryTx{view: &memoryView{t: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	*s.data = *work
	return nil
}

type memoryTx struct {
	view *memoryView
}

func (tx *memoryTx) Users() UserRepository               { return tx.view }
func (tx *memoryTx) Rooms() RoomRepository               { return memoryRooms{tx.view} }
func (tx *memoryTx) Invites() InviteRepository           { return memoryInvites{tx.view} }
func (tx *memoryTx) Participants() ParticipantRepository { return memoryParticipants{tx.view} }

// Transaction inside a memory transaction joins it; the outer commit decides.
func (tx *memoryTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(tx)
}

// memoryView is a table set plus the lock discipline for it. Inside a
// transaction store is nil and the caller already holds the write lock.
type memoryView struct {
	store *MemoryStore
	t     *memoryTables
}

func (v *memoryView) read() func() {
	if v.store == nil {
		return func() {}
	}
	v.store.mu.RLock()
	return v.store.mu.RUnlock
}

func (v *memoryView) write() func() {
	if v.store == nil {
		return func() {}
	}
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

// users

func (v *memoryView) Create(ctx context.Context, user *model.User) error {
	defer v.write()()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, ok := v.t.users[user.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if user.Role == "" {
		user.Role = model.UserRoleUser
	}
	if user.Status == 0 {
		user.Status = model.UserStatusActive
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	v.t.users[user.ID] = *user
	return nil
}

func (v *memoryView) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer v.read()()
	user, ok := v.t.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (v *memoryView) UpdateRole(ctx context.Context, id uuid.UUID, role model.UserRole) error {
	defer v.write()()
	user, ok := v.t.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	v.t.users[id] = user
	return nil
}

// rooms

type memoryRooms struct{ v *memoryView }

func (r memoryRooms) Create(ctx context.Context, room *model.Room) error {
	defer r.v.write()()
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if _, ok := r.v.t.rooms[room.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if room.Status == "" {
		room.Status = model.RoomStatusNew
	}
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	r.v.t.rooms[room.ID] = *room
	return nil
}

func (r memoryRooms) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	defer r.v.read()()
	room, ok := r.v.t.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &room, nil
}

// invites

type memoryInvites struct{ v *memoryView }

func (r memoryInvites) Create(ctx context.Context, invite *model.Invite) error {
	defer r.v.write()()
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if _, ok := r.v.t.invites[invite.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if invite.Version == 0 {
		invite.Version = 1
	}
	if invite.UsesMax <= 0 || invite.UsesCurrent < 0 || invite.UsesCurrent > invite.UsesMax {
		return gorm.ErrCheckConstraintViolated
	}
	invite.CreatedAt = time.Now()
	invite.UpdatedAt = invite.CreatedAt
	r.v.t.invites[invite.ID] = *invite
	return nil
}

func (r memoryInvites) GetByID(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	defer r.v.read()()
	invite, ok := r.v.t.invites[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &invite, nil
}

// GetForUpdate needs no extra locking: transactions are already serialised.
func (r memoryInvites) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	return r.GetByID(ctx, id)
}

func (r memoryInvites) IncrementUses(ctx context.Context, invite *model.Invite) error {
	defer r.v.write()()
	stored, ok := r.v.t.invites[invite.ID]
	if !ok || stored.Version != invite.Version || stored.UsesCurrent >= stored.UsesMax {
		return ErrConcurrentUpdate
	}
	stored.UsesCurrent++
	stored.Version++
	stored.UpdatedAt = time.Now()
	r.v.t.invites[invite.ID] = stored
	invite.UsesCurrent = stored.UsesCurrent
	invite.Version = stored.Version
	return nil
}

func (r memoryInvites) Delete(ctx context.Context, invite *model.Invite) error {
	defer r.v.write()()
	stored, ok := r.v.t.invites[invite.ID]
	if !ok || stored.Version != invite.Version {
		return ErrConcurrentUpdate
	}
	delete(r.v.t.invites, invite.ID)
	return nil
}

func (r memoryInvites) CreateRoomInvite(ctx context.Context, roomInvite *model.RoomInvite) error {
	defer r.v.write()()
	if roomInvite.ID == uuid.Nil {
		roomInvite.ID = uuid.New()
	}
	if _, ok := r.v.t.roomInvites[roomInvite.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range r.v.t.roomInvites {
		if roomInvite.InviteID != nil && existing.InviteID != nil && *existing.InviteID == *roomInvite.InviteID {
			return gorm.ErrDuplicatedKey
		}
		if roomInvite.RoomID != nil && existing.RoomID != nil && *existing.RoomID == *roomInvite.RoomID &&
			existing.ParticipantType == roomInvite.ParticipantType {
			return gorm.ErrDuplicatedKey
		}
	}
	roomInvite.CreatedAt = time.Now()
	r.v.t.roomInvites[roomInvite.ID] = *roomInvite
	return nil
}

func (r memoryInvites) GetRoomInviteByInviteID(ctx context.Context, inviteID uuid.UUID) (*model.RoomInvite, error) {
	defer r.v.read()()
	for _, ri := range r.v.t.roomInvites {
		if ri.InviteID != nil && *ri.InviteID == inviteID {
			return &ri, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memoryInvites) DeleteRoomInvite(ctx context.Context, id uuid.UUID) error {
	defer r.v.write()()
	delete(r.v.t.roomInvites, id)
	return nil
}

func (r memoryInvites) ListRoomInvites(ctx context.Context, roomID uuid.UUID) ([]model.RoomInvite, error) {
	defer r.v.read()()
	var out []model.RoomInvite
	for _, ri := range r.v.t.roomInvites {
		if ri.RoomID != nil && *ri.RoomID == roomID {
			out = append(out, ri)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParticipantType != out[j].ParticipantType {
			return out[i].ParticipantType < out[j].ParticipantType
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// participants

type memoryParticipants struct{ v *memoryView }

func (r memoryParticipants) Create(ctx context.Context, participant *model.RoomParticipant) error {
	defer r.v.write()()
	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}
	for _, existing := range r.v.t.participants {
		if existing.ID == participant.ID ||
			(existing.RoomID == participant.RoomID && existing.UserID == participant.UserID) {
			return gorm.ErrDuplicatedKey
		}
	}
	rows := make([]model.ParticipantPermission, 0, len(participant.Permissions))
	seen := make(map[model.PermissionID]bool, len(participant.Permissions))
	for _, pp := range participant.Permissions {
		if seen[pp.PermissionID] {
			return gorm.ErrDuplicatedKey
		}
		seen[pp.PermissionID] = true
		rows = append(rows, model.ParticipantPermission{ParticipantID: participant.ID, PermissionID: pp.PermissionID})
	}
	participant.Permissions = rows
	participant.CreatedAt = time.Now()
	participant.UpdatedAt = participant.CreatedAt
	r.v.t.participants[participant.ID] = cloneParticipant(*participant)
	return nil
}

func sortedPermissions(p model.RoomParticipant) model.RoomParticipant {
	p = cloneParticipant(p)
	sort.Slice(p.Permissions, func(i, j int) bool {
		return p.Permissions[i].PermissionID < p.Permissions[j].PermissionID
	})
	return p
}

func (r memoryParticipants) FindByRoomAndUser(ctx context.Context, roomID, userID uuid.UUID) (*model.RoomParticipant, error) {
	defer r.v.read()()
	for _, p := range r.v.t.participants {
		if p.RoomID == roomID && p.UserID == userID {
			out := sortedPermissions(p)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memoryParticipants) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomParticipant, error) {
	defer r.v.read()()
	var out []model.RoomParticipant
	for _, p := range r.v.t.participants {
		if p.RoomID == roomID {
			out = append(out, sortedPermissions(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryParticipants) mutate(participantID uuid.UUID, fn func(p *model.RoomParticipant)) error {
	defer r.v.write()()
	p, ok := r.v.t.participants[participantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p = cloneParticipant(p)
	fn(&p)
	p.UpdatedAt = time.Now()
	r.v.t.participants[participantID] = p
	return nil
}

func (r memoryParticipants) UpdateType(ctx context.Context, participantID uuid.UUID, participantType model.ParticipantType) error {
	return r.mutate(participantID, func(p *model.RoomParticipant) {
		p.Type = participantType
	})
}

func (r memoryParticipants) ReplacePermissions(ctx context.Context, participantID uuid.UUID, ids []model.PermissionID) error {
	return r.mutate(participantID, func(p *model.RoomParticipant) {
		p.Permissions = p.Permissions[:0]
		for _, id := range ids {
			p.Permissions = append(p.Permissions, model.ParticipantPermission{ParticipantID: participantID, PermissionID: id})
		}
	})
}

func (r memoryParticipants) AddPermission(ctx context.Context, participantID uuid.UUID, id model.PermissionID) error {
	return r.mutate(participantID, func(p *model.RoomParticipant) {
		for _, pp := range p.Permissions {
			if pp.PermissionID == id {
				return
			}
		}
		p.Permissions = append(p.Permissions, model.ParticipantPermission{ParticipantID: participantID, PermissionID: id})
	})
}

func (r memoryParticipants) RemovePermission(ctx context.Context, participantID uuid.UUID, id model.PermissionID) error {
	return r.mutate(participantID, func(p *model.RoomParticipant) {
		p.Permissions = slices.DeleteFunc(p.Permissions, func(pp model.ParticipantPermission) bool {
			return pp.PermissionID == id
		})
	})
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memoryTx)(nil)
)
