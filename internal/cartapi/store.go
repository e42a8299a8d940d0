package cartapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Record is the stored cart of one session.
type Record struct {
	CartID    int64     `json:"cartId"`
	SessionID string    `json:"sessionId"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Line is one stored cart line. The unit price is fixed when the line is
// created.
type Line struct {
	CartItemID   int64           `json:"cartItemId"`
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	MainImageURL string          `json:"mainImageUrl,omitempty"`
	Description  string          `json:"description,omitempty"`
	SizeSelected *string         `json:"sizeSelected,omitempty"`
	PriceID      *int64          `json:"priceId,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// Store persists session carts. Load returns nil without error when the
// session has no cart.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, sessionID string) error
	NextID(ctx context.Context, sequence string) (int64, error)
}

// Sequences used with Store.NextID.
const (
	SeqCart = "cart"
	SeqItem = "item"
)

// RedisStore keeps each session cart as one JSON value that expires TTL after
// its last write. Ids come from INCR counters.
type RedisStore struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s RedisStore) key(sessionID string) string {
	return s.Prefix + "cart:session:" + sessionID
}

// Load implements Store.
func (s RedisStore) Load(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.Client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &rec, nil
}

// Save implements Store.
func (s RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Client.Set(ctx, s.key(rec.SessionID), data, s.TTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.Client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// NextID implements Store.
func (s RedisStore) NextID(ctx context.Context, sequence string) (int64, error) {
	id, err := s.Client.Incr(ctx, s.Prefix+"cart:seq:"+sequence).Result()
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", sequence, err)
	}
	return id, nil
}

// MemoryStore is a process-local Store. Entries do not expire.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	seqs    map[string]int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), seqs: make(map[string]int64)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	rec.Lines = append([]Line(nil), rec.Lines...)
	return &rec, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *rec
	stored.Lines = append([]Line(nil), rec.Lines...)
	s.records[rec.SessionID] = stored
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

// NextID implements Store.
func (s *MemoryStore) NextID(_ context.Context, sequence string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[sequence]++
	return s.seqs[sequence], nil
}
