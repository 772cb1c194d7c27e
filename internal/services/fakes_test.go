package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/types"
)

// memStore is an in-memory entity store shared by the fake repositories.
// RunInTransaction snapshots it and restores the snapshot when fn fails.
type memStore struct {
	requests     map[string]entities.Request
	events       []entities.RequestEvent
	clients      map[string]entities.Client
	users        map[string]entities.User
	installments map[string]entities.InstallmentDetails
	banks        map[string]entities.Bank
	comments     []entities.Comment
	attachments  map[string]entities.Attachment
	seq          int64

	failEventCreate error
}

func newMemStore() *memStore {
	return &memStore{
		requests:     map[string]entities.Request{},
		clients:      map[string]entities.Client{},
		users:        map[string]entities.User{},
		installments: map[string]entities.InstallmentDetails{},
		banks:        map[string]entities.Bank{},
		attachments:  map[string]entities.Attachment{},
	}
}

type snapshot struct {
	requests     map[string]entities.Request
	events       []entities.RequestEvent
	clients      map[string]entities.Client
	installments map[string]entities.InstallmentDetails
	comments     []entities.Comment
	attachments  map[string]entities.Attachment
}

func (s *memStore) snapshot() snapshot {
	return snapshot{
		requests:     copyMap(s.requests),
		events:       append([]entities.RequestEvent(nil), s.events...),
		clients:      copyMap(s.clients),
		installments: copyMap(s.installments),
		comments:     append([]entities.Comment(nil), s.comments...),
		attachments:  copyMap(s.attachments),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.requests = snap.requests
	s.events = snap.events
	s.clients = snap.clients
	s.installments = snap.installments
	s.comments = snap.comments
	s.attachments = snap.attachments
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memStore) eventsOf(requestID string) []entities.RequestEvent {
	var out []entities.RequestEvent
	for _, e := range s.events {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (s *memStore) view(r entities.Request) entities.RequestView {
	v := entities.RequestView{Request: r}
	if c, ok := s.clients[r.ClientID]; ok {
		v.Client = &entities.ClientRef{ID: c.ID, FullName: c.FullName, Phone: c.Phone}
	}
	if r.AssignedToID != nil {
		if u, ok := s.users[*r.AssignedToID]; ok {
			v.AssignedTo = &entities.UserRef{ID: u.ID, FullName: u.FullName, Role: u.Role}
		}
	}
	if u, ok := s.users[r.CreatedByID]; ok {
		v.CreatedBy = &entities.UserRef{ID: u.ID, FullName: u.FullName, Role: u.Role}
	}
	if d, ok := s.installments[r.ID]; ok {
		v.Installment = &d
	}
	if history := s.eventsOf(r.ID); len(history) > 0 {
		latest := history[len(history)-1]
		v.LatestEvent = &latest
	}
	for _, c := range s.comments {
		if c.RequestID != nil && *c.RequestID == r.ID {
			v.CommentsCount++
		}
	}
	return v
}

func requestNotFound(id string) error { return apperrors.NewNotFound("request %s not found", id) }
func clientNotFound(id string) error  { return apperrors.NewNotFound("client %s not found", id) }

type fakeTx struct{ s *memStore }

func (f fakeTx) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	snap := f.s.snapshot()
	if err := fn(nil); err != nil {
		f.s.restore(snap)
		return err
	}
	return nil
}

type fakeRequests struct{ s *memStore }

func (f fakeRequests) CreateInTx(_ context.Context, _ pgx.Tx, req *entities.Request) error {
	f.s.requests[req.ID] = *req
	return nil
}

func (f fakeRequests) FindByID(_ context.Context, id string) (*entities.Request, error) {
	r, ok := f.s.requests[id]
	if !ok {
		return nil, requestNotFound(id)
	}
	return &r, nil
}

func (f fakeRequests) FindForUpdateInTx(ctx context.Context, _ pgx.Tx, id string) (*entities.Request, error) {
	return f.FindByID(ctx, id)
}

func (f fakeRequests) FindView(_ context.Context, id string) (*entities.RequestView, error) {
	r, ok := f.s.requests[id]
	if !ok {
		return nil, requestNotFound(id)
	}
	v := f.s.view(r)
	return &v, nil
}

func (f fakeRequests) UpdateFieldsInTx(_ context.Context, _ pgx.Tx, req *entities.Request) error {
	if _, ok := f.s.requests[req.ID]; !ok {
		return requestNotFound(req.ID)
	}
	f.s.requests[req.ID] = *req
	return nil
}

func (f fakeRequests) UpdateStatusInTx(_ context.Context, _ pgx.Tx, id string, status constants.RequestStatus, at time.Time) error {
	r, ok := f.s.requests[id]
	if !ok {
		return requestNotFound(id)
	}
	r.CurrentStatus = status
	r.UpdatedAt = at
	f.s.requests[id] = r
	return nil
}

func (f fakeRequests) TouchInTx(_ context.Context, _ pgx.Tx, id string, at time.Time) error {
	r, ok := f.s.requests[id]
	if !ok {
		return requestNotFound(id)
	}
	r.UpdatedAt = at
	f.s.requests[id] = r
	return nil
}

func (f fakeRequests) DeleteInTx(_ context.Context, _ pgx.Tx, id string) error {
	if _, ok := f.s.requests[id]; !ok {
		return requestNotFound(id)
	}
	delete(f.s.requests, id)
	delete(f.s.installments, id)
	return nil
}

func (f fakeRequests) CountByClientIDInTx(_ context.Context, _ pgx.Tx, clientID string) (int, error) {
	n := 0
	for _, r := range f.s.requests {
		if r.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

// scopeAllowsRequest mirrors authz.Scope.RequestPredicate in memory.
func scopeAllowsRequest(scope authz.Scope, r *entities.Request) bool {
	if scope.All || slices.Contains(scope.UserIDs, r.CreatedByID) {
		return true
	}
	return r.AssignedToID != nil && slices.Contains(scope.UserIDs, *r.AssignedToID)
}

func scopeAllowsClient(scope authz.Scope, c *entities.Client) bool {
	return scope.All || slices.Contains(scope.UserIDs, c.CreatedByID)
}

func (f fakeRequests) visible(scope authz.Scope) []entities.RequestView {
	var out []entities.RequestView
	for _, r := range f.s.requests {
		r := r
		if scopeAllowsRequest(scope, &r) {
			out = append(out, f.s.view(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (f fakeRequests) List(_ context.Context, filter types.Filter, scope authz.Scope) ([]entities.RequestView, uint64, error) {
	all := f.visible(scope)
	total := uint64(len(all))
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return all[start:end], total, nil
}

func (f fakeRequests) ListForBoard(_ context.Context, scope authz.Scope) ([]entities.RequestView, error) {
	return f.visible(scope), nil
}

func (f fakeRequests) CountByStatus(_ context.Context, scope authz.Scope) (map[constants.RequestStatus]int, error) {
	out := map[constants.RequestStatus]int{}
	for _, v := range f.visible(scope) {
		out[v.CurrentStatus]++
	}
	return out, nil
}

func (f fakeRequests) CountByType(_ context.Context, scope authz.Scope) (map[constants.RequestType]int, error) {
	out := map[constants.RequestType]int{}
	for _, v := range f.visible(scope) {
		out[v.Type]++
	}
	return out, nil
}

type fakeEvents struct{ s *memStore }

func (f fakeEvents) CreateInTx(_ context.Context, _ pgx.Tx, event *entities.RequestEvent) error {
	if f.s.failEventCreate != nil {
		return f.s.failEventCreate
	}
	f.s.seq++
	event.Seq = f.s.seq
	f.s.events = append(f.s.events, *event)
	return nil
}

func (f fakeEvents) FindByRequestID(_ context.Context, requestID string) ([]entities.RequestEvent, error) {
	out := f.s.eventsOf(requestID)
	for i := range out {
		if u, ok := f.s.users[out[i].ChangedByID]; ok {
			out[i].ChangedByName = u.FullName
		}
	}
	return out, nil
}

func (f fakeEvents) DeleteByRequestIDInTx(_ context.Context, _ pgx.Tx, requestID string) error {
	kept := f.s.events[:0:0]
	for _, e := range f.s.events {
		if e.RequestID != requestID {
			kept = append(kept, e)
		}
	}
	f.s.events = kept
	return nil
}

type fakeClients struct{ s *memStore }

func (f fakeClients) Create(_ context.Context, c *entities.Client) error {
	f.s.clients[c.ID] = *c
	return nil
}

func (f fakeClients) FindByID(_ context.Context, id string) (*entities.Client, error) {
	c, ok := f.s.clients[id]
	if !ok {
		return nil, clientNotFound(id)
	}
	return &c, nil
}

func (f fakeClients) FindForUpdateInTx(ctx context.Context, _ pgx.Tx, id string) (*entities.Client, error) {
	return f.FindByID(ctx, id)
}

func (f fakeClients) Update(_ context.Context, c *entities.Client) error {
	if _, ok := f.s.clients[c.ID]; !ok {
		return clientNotFound(c.ID)
	}
	f.s.clients[c.ID] = *c
	return nil
}

func (f fakeClients) TouchInTx(_ context.Context, _ pgx.Tx, id string, at time.Time) error {
	c, ok := f.s.clients[id]
	if !ok {
		return clientNotFound(id)
	}
	c.UpdatedAt = at
	f.s.clients[id] = c
	return nil
}

func (f fakeClients) DeleteInTx(_ context.Context, _ pgx.Tx, id string) error {
	if _, ok := f.s.clients[id]; !ok {
		return clientNotFound(id)
	}
	delete(f.s.clients, id)
	return nil
}

func (f fakeClients) List(_ context.Context, _ types.Filter, scope authz.Scope) ([]entities.Client, uint64, error) {
	var out []entities.Client
	for _, c := range f.s.clients {
		c := c
		if scopeAllowsClient(scope, &c) {
			out = append(out, c)
		}
	}
	return out, uint64(len(out)), nil
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) Create(_ context.Context, u *entities.User) error {
	for _, existing := range f.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.NewConflict("user %q already exists", u.Email)
		}
	}
	f.s.users[u.ID] = *u
	return nil
}

func (f fakeUsers) Update(_ context.Context, u *entities.User) error {
	if _, ok := f.s.users[u.ID]; !ok {
		return apperrors.NewNotFound("user %s not found", u.ID)
	}
	f.s.users[u.ID] = *u
	return nil
}

func (f fakeUsers) FindByID(_ context.Context, id string) (*entities.User, error) {
	u, ok := f.s.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user %s not found", id)
	}
	return &u, nil
}

func (f fakeUsers) FindByLogin(_ context.Context, login string) (*entities.User, error) {
	for _, u := range f.s.users {
		if strings.EqualFold(u.Email, login) || (u.Phone != nil && *u.Phone == login) {
			return &u, nil
		}
	}
	return nil, apperrors.NewNotFound("user %s not found", login)
}

func (f fakeUsers) FindTeamMemberIDs(_ context.Context, leadID string) ([]string, error) {
	var ids []string
	for _, u := range f.s.users {
		if u.AssistantID != nil && *u.AssistantID == leadID {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f fakeUsers) List(_ context.Context, _ types.Filter) ([]entities.User, uint64, error) {
	out := make([]entities.User, 0, len(f.s.users))
	for _, u := range f.s.users {
		out = append(out, u)
	}
	return out, uint64(len(out)), nil
}

type fakeInstallments struct{ s *memStore }

func (f fakeInstallments) UpsertInTx(_ context.Context, _ pgx.Tx, d *entities.InstallmentDetails) error {
	f.s.installments[d.RequestID] = *d
	return nil
}

func (f fakeInstallments) FindByRequestIDInTx(_ context.Context, _ pgx.Tx, requestID string) (*entities.InstallmentDetails, error) {
	d, ok := f.s.installments[requestID]
	if !ok {
		return nil, apperrors.NewNotFound("installment details for %s not found", requestID)
	}
	return &d, nil
}

type fakeBanks struct{ s *memStore }

func (f fakeBanks) List(_ context.Context, onlyActive bool) ([]entities.Bank, error) {
	var out []entities.Bank
	for _, b := range f.s.banks {
		if !onlyActive || b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeBanks) FindByID(_ context.Context, id string) (*entities.Bank, error) {
	b, ok := f.s.banks[id]
	if !ok {
		return nil, apperrors.NewNotFound("bank %s not found", id)
	}
	return &b, nil
}

func (f fakeBanks) Create(_ context.Context, b *entities.Bank) error {
	for _, existing := range f.s.banks {
		if existing.Name == b.Name {
			return apperrors.NewConflict("bank %q already exists", b.Name)
		}
	}
	f.s.banks[b.ID] = *b
	return nil
}

func (f fakeBanks) Update(_ context.Context, b *entities.Bank) error {
	f.s.banks[b.ID] = *b
	return nil
}

type fakeComments struct{ s *memStore }

func (f fakeComments) CreateInTx(_ context.Context, _ pgx.Tx, c *entities.Comment) error {
	f.s.comments = append(f.s.comments, *c)
	return nil
}

func (f fakeComments) ListByOwner(_ context.Context, kind entities.OwnerKind, ownerID string) ([]entities.Comment, error) {
	var out []entities.Comment
	for _, c := range f.s.comments {
		ref := c.ClientID
		if kind == entities.OwnerRequest {
			ref = c.RequestID
		}
		if ref != nil && *ref == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAttachments struct{ s *memStore }

func (f fakeAttachments) Create(_ context.Context, a *entities.Attachment) error {
	f.s.attachments[a.ID] = *a
	return nil
}

func (f fakeAttachments) FindByID(_ context.Context, id string) (*entities.Attachment, error) {
	a, ok := f.s.attachments[id]
	if !ok {
		return nil, apperrors.NewNotFound("attachment %s not found", id)
	}
	return &a, nil
}

func (f fakeAttachments) ListByOwner(_ context.Context, kind entities.OwnerKind, ownerID string) ([]entities.Attachment, error) {
	var out []entities.Attachment
	for _, a := range f.s.attachments {
		ref := a.ClientID
		if kind == entities.OwnerRequest {
			ref = a.RequestID
		}
		if ref != nil && *ref == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAttachments) Delete(_ context.Context, id string) error {
	if _, ok := f.s.attachments[id]; !ok {
		return apperrors.NewNotFound("attachment %s not found", id)
	}
	delete(f.s.attachments, id)
	return nil
}

func (f fakeAttachments) StorageKeysByRequestIDInTx(_ context.Context, _ pgx.Tx, requestID string) ([]string, error) {
	var keys []string
	for id, a := range f.s.attachments {
		if a.RequestID != nil && *a.RequestID == requestID {
			keys = append(keys, a.StorageKey)
			delete(f.s.attachments, id)
		}
	}
	return keys, nil
}

// memBlobs is an in-memory FileStorageInterface.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	n     int
}

func newMemBlobs() *memBlobs { return &memBlobs{blobs: map[string][]byte{}} }

func (b *memBlobs) Save(_ context.Context, r io.Reader, _ int64, name, _, prefix string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	key := fmt.Sprintf("%s/%d-%s", prefix, b.n, name)
	b.blobs[key] = data
	return key, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *memBlobs) URL(_ context.Context, key string) (string, error) {
	return "/uploads/" + key, nil
}

// memCache is an in-memory CacheRepositoryInterface.
type memCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemCache() *memCache { return &memCache{values: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.values[key] = fmt.Sprint(value)
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	v, ok := c.values[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return c.err
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	var n int64
	fmt.Sscan(c.values[key], &n)
	n++
	c.values[key] = fmt.Sprint(n)
	return n, nil
}

func (c *memCache) Expire(context.Context, string, time.Duration) error { return c.err }

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, e eventbus.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Name())
	}
	return out
}

// clock advances one second per call so event timestamps are strictly ordered.
type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

var errInjected = errors.New("injected store failure")

// fixture wires every service against one memStore.
type fixture struct {
	store    *memStore
	bus      *recordingBus
	blobs    *memBlobs
	cache    *memCache
	policy   *authz.Policy
	requests *RequestService
	kanban   KanbanServiceInterface
	clients  *ClientService
	comments *CommentService
	teams    TeamServiceInterface
}

func newFixture() *fixture {
	store := newMemStore()
	bus := &recordingBus{}
	blobs := newMemBlobs()
	cache := newMemCache()
	policy := authz.NewPolicy()
	logger := zap.NewNop()
	c := newClock()

	requests := NewRequestService(
		fakeTx{store},
		RequestRepositories{
			Requests:    fakeRequests{store},
			Events:      fakeEvents{store},
			Clients:     fakeClients{store},
			Installment: fakeInstallments{store},
			Users:       fakeUsers{store},
			Banks:       fakeBanks{store},
			Attachments: fakeAttachments{store},
		},
		blobs, policy, bus, nil, logger,
	).(*RequestService)
	requests.now = c.Now

	clients := NewClientService(fakeTx{store}, fakeClients{store}, fakeRequests{store}, policy, bus, logger).(*ClientService)
	clients.now = c.Now

	comments := NewCommentService(fakeTx{store}, fakeComments{store}, fakeRequests{store}, fakeClients{store}, policy, bus, logger).(*CommentService)
	comments.now = c.Now

	teams := NewTeamService(fakeUsers{store}, cache, time.Minute, logger)

	return &fixture{
		store:    store,
		bus:      bus,
		blobs:    blobs,
		cache:    cache,
		policy:   policy,
		requests: requests,
		kanban:   NewKanbanService(fakeRequests{store}, teams, policy, logger),
		clients:  clients,
		comments: comments,
		teams:    teams,
	}
}

func (f *fixture) addUser(id string, role constants.Role, lead *string) authz.Actor {
	f.store.users[id] = entities.User{
		ID:          id,
		FullName:    "User " + id,
		Email:       id + "@example.com",
		Role:        role,
		IsActive:    true,
		AssistantID: lead,
	}
	return authz.Actor{ID: id, Role: role, AssistantID: lead}
}

func (f *fixture) addClient(id, createdBy string) {
	f.store.clients[id] = entities.Client{ID: id, FullName: "Client " + id, Phone: "+96650000000" + id[len(id)-1:], CreatedByID: createdBy}
}
