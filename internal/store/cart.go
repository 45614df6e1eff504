package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"vesture_back_end/internal/models"

	"github.com/redis/go-redis/v9"
)

const cartTTL = 30 * 24 * time.Hour

// CartStore : panier par utilisateur, productId → taille → quantité.
// Passé explicitement aux handlers, jamais de singleton mutable.
type CartStore interface {
	// Add incrémente de 1 la quantité pour (productId, taille)
	Add(ctx context.Context, userID, productID, size string) error
	// SetQuantity écrase la quantité ; quantity <= 0 supprime l'entrée
	SetQuantity(ctx context.Context, userID, productID, size string, quantity int) error
	// Read retourne le panier courant (map vide si aucun panier)
	Read(ctx context.Context, userID string) (models.CartData, error)
	// Clear vide entièrement le panier
	Clear(ctx context.Context, userID string) error
}

// =============================================
// IMPLÉMENTATION REDIS
// =============================================

// RedisCartStore stocke chaque panier dans un hash "cart:<userID>" dont les
// champs sont "productID:size". HINCRBY est atomique côté Redis : deux ajouts
// concurrents du même utilisateur ne se perdent jamais.
type RedisCartStore struct {
	Client *redis.Client
}

func NewRedisCartStore(client *redis.Client) *RedisCartStore {
	return &RedisCartStore{Client: client}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

func cartField(productID, size string) string {
	return productID + ":" + size
}

// splitCartField redécoupe un champ "productID:size". Le séparateur est le
// PREMIER ':' : les productID sont des UUID (jamais de ':'), les tailles
// sont du texte libre qui peut en contenir ("EU:42").
func splitCartField(field string) (productID, size string, ok bool) {
	idx := strings.Index(field, ":")
	if idx <= 0 || idx == len(field)-1 {
		return "", "", false
	}
	return field[:idx], field[idx+1:], true
}

func (s *RedisCartStore) Add(ctx context.Context, userID, productID, size string) error {
	key := cartKey(userID)
	if err := s.Client.HIncrBy(ctx, key, cartField(productID, size), 1).Err(); err != nil {
		return err
	}
	return s.Client.Expire(ctx, key, cartTTL).Err()
}

func (s *RedisCartStore) SetQuantity(ctx context.Context, userID, productID, size string, quantity int) error {
	key := cartKey(userID)
	field := cartField(productID, size)

	if quantity <= 0 {
		return s.Client.HDel(ctx, key, field).Err()
	}

	if err := s.Client.HSet(ctx, key, field, quantity).Err(); err != nil {
		return err
	}
	return s.Client.Expire(ctx, key, cartTTL).Err()
}

func (s *RedisCartStore) Read(ctx context.Context, userID string) (models.CartData, error) {
	fields, err := s.Client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	cart := models.CartData{}
	for field, raw := range fields {
		productID, size, ok := splitCartField(field)
		if !ok {
			continue
		}

		var qty int
		if _, err := fmt.Sscanf(raw, "%d", &qty); err != nil || qty <= 0 {
			continue
		}

		if cart[productID] == nil {
			cart[productID] = map[string]int{}
		}
		cart[productID][size] = qty
	}
	return cart, nil
}

func (s *RedisCartStore) Clear(ctx context.Context, userID string) error {
	return s.Client.Del(ctx, cartKey(userID)).Err()
}

// =============================================
// IMPLÉMENTATION MÉMOIRE (tests et dev local)
// =============================================

type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]models.CartData
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]models.CartData)}
}

func (s *MemoryCartStore) Add(_ context.Context, userID, productID, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[userID]
	if cart == nil {
		cart = models.CartData{}
		s.carts[userID] = cart
	}
	if cart[productID] == nil {
		cart[productID] = map[string]int{}
	}
	cart[productID][size]++
	return nil
}

func (s *MemoryCartStore) SetQuantity(_ context.Context, userID, productID, size string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[userID]
	if quantity <= 0 {
		if cart == nil || cart[productID] == nil {
			return nil
		}
		delete(cart[productID], size)
		if len(cart[productID]) == 0 {
			delete(cart, productID)
		}
		return nil
	}

	if cart == nil {
		cart = models.CartData{}
		s.carts[userID] = cart
	}
	if cart[productID] == nil {
		cart[productID] = map[string]int{}
	}
	cart[productID][size] = quantity
	return nil
}

func (s *MemoryCartStore) Read(_ context.Context, userID string) (models.CartData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// copie défensive, les handlers ne partagent pas la map interne
	out := models.CartData{}
	for productID, sizes := range s.carts[userID] {
		out[productID] = map[string]int{}
		for size, qty := range sizes {
			out[productID][size] = qty
		}
	}
	return out, nil
}

func (s *MemoryCartStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
