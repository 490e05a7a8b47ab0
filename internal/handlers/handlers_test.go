package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lovestory/apiserver/internal/services"
	"github.com/lovestory/apiserver/internal/store"
	"github.com/lovestory/apiserver/types"
)

const testSecret = "test-secret"
const testBaseURL = "http://localhost:8000"

// fakeUserRepo is an in-memory services.UserRepository with the same
// uniqueness contract as the Mongo store.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedOn = time.Now()
	r.users[user.ID.Hex()] = user
	return user, nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *fakeUserRepo) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// fakeStoryRepo is an in-memory services.StoryRepository honoring the
// owner-scoping and favourites-first contracts of the Mongo store.
type fakeStoryRepo struct {
	mu      sync.Mutex
	stories []types.Story
	failAll bool
}

func newFakeStoryRepo() *fakeStoryRepo {
	return &fakeStoryRepo{}
}

type errStoreDown struct{}

func (errStoreDown) Error() string { return "store down" }

func (r *fakeStoryRepo) Create(ctx context.Context, story types.Story) (types.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return types.Story{}, errStoreDown{}
	}
	story.ID = primitive.NewObjectID()
	story.CreatedOn = time.Now()
	r.stories = append(r.stories, story)
	return story, nil
}

func (r *fakeStoryRepo) Get(ctx context.Context, id string, ownerID primitive.ObjectID) (types.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, story := range r.stories {
		if story.ID.Hex() == id && story.UserID == ownerID {
			return story, nil
		}
	}
	return types.Story{}, store.ErrNotFound
}

func (r *fakeStoryRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]types.Story, error) {
	return r.collect(func(s types.Story) bool { return s.UserID == ownerID })
}

func (r *fakeStoryRepo) Search(ctx context.Context, ownerID primitive.ObjectID, query string) ([]types.Story, error) {
	needle := strings.ToLower(query)
	return r.collect(func(s types.Story) bool {
		if s.UserID != ownerID {
			return false
		}
		if strings.Contains(strings.ToLower(s.Title), needle) ||
			strings.Contains(strings.ToLower(s.Story), needle) {
			return true
		}
		for _, loc := range s.VisitedLocation {
			if strings.Contains(strings.ToLower(loc), needle) {
				return true
			}
		}
		return false
	})
}

func (r *fakeStoryRepo) FilterByDate(ctx context.Context, ownerID primitive.ObjectID, start, end time.Time) ([]types.Story, error) {
	return r.collect(func(s types.Story) bool {
		return s.UserID == ownerID && !s.VisitedDate.Before(start) && !s.VisitedDate.After(end)
	})
}

func (r *fakeStoryRepo) Update(ctx context.Context, id string, ownerID primitive.ObjectID, story types.Story) (types.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.stories {
		if r.stories[i].ID.Hex() == id && r.stories[i].UserID == ownerID {
			r.stories[i].Title = story.Title
			r.stories[i].Story = story.Story
			r.stories[i].VisitedLocation = story.VisitedLocation
			r.stories[i].VisitedDate = story.VisitedDate
			r.stories[i].ImageURL = story.ImageURL
			return r.stories[i], nil
		}
	}
	return types.Story{}, store.ErrNotFound
}

func (r *fakeStoryRepo) SetFavourite(ctx context.Context, id string, ownerID primitive.ObjectID, isFavourite bool) (types.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.stories {
		if r.stories[i].ID.Hex() == id && r.stories[i].UserID == ownerID {
			r.stories[i].IsFavourite = isFavourite
			return r.stories[i], nil
		}
	}
	return types.Story{}, store.ErrNotFound
}

func (r *fakeStoryRepo) Delete(ctx context.Context, id string, ownerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.stories {
		if r.stories[i].ID.Hex() == id && r.stories[i].UserID == ownerID {
			r.stories = append(r.stories[:i], r.stories[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *fakeStoryRepo) collect(match func(types.Story) bool) ([]types.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown{}
	}
	var out []types.Story
	for _, story := range r.stories {
		if match(story) {
			out = append(out, story)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsFavourite && !out[j].IsFavourite
	})
	return out, nil
}

func (r *fakeStoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stories)
}

// fakeFileStore is an in-memory services.FileStore with the same
// not-found contract as the real backends.
type fakeFileStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	getErr  error
}

type fakeObject struct {
	data        []byte
	contentType string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{objects: make(map[string]fakeObject)}
}

func (s *fakeFileStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (s *fakeFileStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, "", s.getErr
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", services.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *fakeFileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return services.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeFileStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type testEnv struct {
	router    *chi.Mux
	userRepo  *fakeUserRepo
	storyRepo *fakeStoryRepo
	fileStore *fakeFileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	storyRepo := newFakeStoryRepo()
	fileStore := newFakeFileStore()

	userService := services.NewUserService(userRepo)
	storyService := services.NewStoryService(storyRepo)
	mediaService := services.NewMediaService(fileStore, testBaseURL)

	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	AuthRouter(router, userService, testSecret, authMiddleware)
	StoryRouter(router, storyService, mediaService, authMiddleware)
	MediaRouter(router, mediaService)

	return &testEnv{
		router:    router,
		userRepo:  userRepo,
		storyRepo: storyRepo,
		fileStore: fileStore,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// registerTestUser creates an account and returns its token and id.
func registerTestUser(t *testing.T, env *testEnv, email string) (string, string) {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/create-account", "", RegisterRequest{
		FullName: "Test User",
		Email:    email,
		Password: "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	resp := decodeBody[AuthResponse](t, rec)
	if resp.AccessToken == "" {
		t.Fatal("register returned empty access token")
	}

	user, err := env.userRepo.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("registered user not stored: %v", err)
	}
	return resp.AccessToken, user.ID.Hex()
}
