package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// fakeStore is an in-memory stand-in for the three repositories.
type fakeStore struct {
	mu           sync.Mutex
	books        map[int64]*models.Book
	ratings      map[int64]*models.Rating
	fingerprints map[int64]models.Fingerprint
	userBooks    []models.UserBook
	nextRatingID int64
	clock        time.Time

	bookLocks sync.Map // int64 -> *sync.Mutex

	upsertCalls int
	failUpsert  error
	failLibrary error
	failRatings error
	failPopular error
	// embeddingDelay blocks GetEmbedding until ctx is done when > 0
	embeddingDelay time.Duration
}

var (
	_ repository.RatingRepository  = (*fakeStore)(nil)
	_ repository.BookRepository    = (*fakeStore)(nil)
	_ repository.LibraryRepository = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:        map[int64]*models.Book{},
		ratings:      map[int64]*models.Rating{},
		fingerprints: map[int64]models.Fingerprint{},
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) addBook(id int64, title string) *models.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &models.Book{ID: id, Title: title, Author: "Author", CreatedAt: f.clock.Add(time.Duration(id) * time.Hour)}
	f.books[id] = b
	return b
}

func (f *fakeStore) setFingerprint(fp models.Fingerprint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fingerprints[fp.BookID] = fp
}

func (f *fakeStore) addUserBook(userID string, bookID int64, status models.ReadingStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userBooks = append(f.userBooks, models.UserBook{UserID: userID, BookID: bookID, Status: status})
}

// now is a locked tick for use as a service clock.
func (f *fakeStore) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tick()
}

// tick returns a strictly increasing timestamp. Callers hold f.mu.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// RatingRepository

func (f *fakeStore) Create(ctx context.Context, rating *models.Rating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.ratings {
		if r.UserID == rating.UserID && r.BookID == rating.BookID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	f.nextRatingID++
	rating.ID = f.nextRatingID
	rating.CreatedAt = f.tick()
	rating.UpdatedAt = rating.CreatedAt
	cp := *rating
	f.ratings[rating.ID] = &cp
	return nil
}

func (f *fakeStore) Update(ctx context.Context, rating *models.Rating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ratings[rating.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	rating.UpdatedAt = f.tick()
	cp := *rating
	f.ratings[rating.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, userID string, bookID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.ratings {
		if r.UserID == userID && r.BookID == bookID {
			delete(f.ratings, id)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeStore) GetByUserAndBook(ctx context.Context, userID string, bookID int64) (*models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.ratings {
		if r.UserID == userID && r.BookID == bookID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ListRatingsForBook(ctx context.Context, bookID int64) ([]models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Rating
	for _, r := range f.ratings {
		if r.BookID == bookID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetFingerprint(ctx context.Context, bookID int64) (*models.Fingerprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, ok := f.fingerprints[bookID]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

func (f *fakeStore) UpsertFingerprint(ctx context.Context, fp *models.Fingerprint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.failUpsert != nil {
		return f.failUpsert
	}
	f.fingerprints[fp.BookID] = *fp
	return nil
}

func (f *fakeStore) WithinBookLock(ctx context.Context, bookID int64, fn func(tx repository.RatingRepository) error) error {
	m, _ := f.bookLocks.LoadOrStore(bookID, &sync.Mutex{})
	lock := m.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()
	return fn(f)
}

// BookRepository

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListByIDs(ctx context.Context, ids []int64) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Book{}
	for _, id := range ids {
		if b, ok := f.books[id]; ok {
			out = append(out, *b)
		}
	}
	// storage order is not rank order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) GetEmbedding(ctx context.Context, bookID int64) ([]float32, error) {
	if f.embeddingDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.embeddingDelay):
		}
	}
	b, err := f.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return b.EmbeddingVector(), nil
}

func (f *fakeStore) SetEmbedding(ctx context.Context, bookID int64, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[bookID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v := pgvector.NewVector(embedding)
	b.Embedding = &v
	return nil
}

func (f *fakeStore) ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Book
	for _, b := range f.books {
		if b.Embedding == nil && b.ID > afterID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (f *fakeStore) ListCandidateBooks(ctx context.Context, excludeIDs []int64, limit int) ([]repository.EmbeddingCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	skip := toSet(excludeIDs)
	var books []*models.Book
	for _, b := range f.books {
		if b.Embedding != nil && !skip[b.ID] {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID > books[j].ID
	})
	if len(books) > limit {
		books = books[:limit]
	}
	out := make([]repository.EmbeddingCandidate, 0, len(books))
	for _, b := range books {
		out = append(out, repository.EmbeddingCandidate{BookID: b.ID, Embedding: b.EmbeddingVector()})
	}
	return out, nil
}

func (f *fakeStore) ListBooksWithReliableFingerprint(ctx context.Context, minCount int, excludeIDs []int64) ([]models.Fingerprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	skip := toSet(excludeIDs)
	var out []models.Fingerprint
	for id, fp := range f.fingerprints {
		if fp.TotalRatingCount >= minCount && !skip[id] {
			out = append(out, fp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

func (f *fakeStore) ListPopular(ctx context.Context, minCount int, minStar float64, excludeIDs []int64, limit int) ([]repository.PopularBook, error) {
	if f.failPopular != nil {
		return nil, f.failPopular
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	skip := toSet(excludeIDs)
	var out []repository.PopularBook
	for id, fp := range f.fingerprints {
		if skip[id] || fp.TotalRatingCount < minCount || fp.StarEquivalent == nil || *fp.StarEquivalent < minStar {
			continue
		}
		if b, ok := f.books[id]; ok {
			out = append(out, repository.PopularBook{Book: *b, Fingerprint: fp})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fingerprint.TotalRatingCount != out[j].Fingerprint.TotalRatingCount {
			return out[i].Fingerprint.TotalRatingCount > out[j].Fingerprint.TotalRatingCount
		}
		return out[i].Book.ID < out[j].Book.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListByMood(ctx context.Context, bounds []models.DimensionBound, minCount, limit int) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, fp := range f.fingerprints {
		fp := fp
		if fp.TotalRatingCount < minCount {
			continue
		}
		ok := true
		for _, b := range bounds {
			if !b.Matches(&fp) {
				ok = false
				break
			}
		}
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []models.Book{}
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		if b, ok := f.books[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

// LibraryRepository

func (f *fakeStore) ListUserBooks(ctx context.Context, userID string) ([]models.UserBook, error) {
	if f.failLibrary != nil {
		return nil, f.failLibrary
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserBook
	for _, ub := range f.userBooks {
		if ub.UserID == userID {
			out = append(out, ub)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUserRatings(ctx context.Context, userID string) ([]models.Rating, error) {
	if f.failRatings != nil {
		return nil, f.failRatings
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Rating
	for _, r := range f.ratings {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func ptr[T any](v T) *T { return &v }

// vals builds an input in vector order; 0 leaves a dimension unsent.
func vals(v ...int) RatingInput {
	var out RatingValues
	for i, x := range v {
		if x > 0 {
			out[i] = ptr(x)
		}
	}
	return NewRatingInput(out)
}

// reliableFingerprint builds a fingerprint with every average set.
func reliableFingerprint(bookID int64, count int, avgs ...float64) models.Fingerprint {
	fp := models.Fingerprint{BookID: bookID, TotalRatingCount: count}
	var sum float64
	for i, a := range avgs {
		fp.SetAverage(models.Dimension(i), ptr(a))
		sum += a
	}
	if len(avgs) > 0 {
		fp.StarEquivalent = ptr(sum / float64(len(avgs)))
	}
	return fp
}
