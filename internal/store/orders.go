package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"

	"vesture_back_end/internal/database"
	"vesture_back_end/internal/models"

	"github.com/gocql/gocql"
)

var ErrOrderNotFound = errors.New("commande introuvable")

// OrderStore : persistance des commandes. L'écriture d'une commande est
// une ligne unique (items et adresse sérialisés en JSON), on s'appuie sur
// l'atomicité par ligne de la base.
type OrderStore interface {
	Insert(ctx context.Context, order models.Order) error
	FindByID(ctx context.Context, id gocql.UUID) (models.Order, error)
	// FindByUser retourne les commandes d'un utilisateur, plus récentes d'abord
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	// FindAll retourne toutes les commandes, plus récentes d'abord
	FindAll(ctx context.Context) ([]models.Order, error)
	// SetPaid marque la commande payée (monotone : jamais de retour arrière)
	SetPaid(ctx context.Context, id gocql.UUID) error
	SetStatus(ctx context.Context, id gocql.UUID, status string) error
	Delete(ctx context.Context, id gocql.UUID) error
}

// =============================================
// IMPLÉMENTATION SCYLLADB
// =============================================

// ScyllaOrderStore écrit dans deux tables : orders (par order_id) et
// orders_by_user ((user_id), created_at DESC) pour lister les commandes
// d'un utilisateur sans scan complet.
type ScyllaOrderStore struct{}

func NewScyllaOrderStore() *ScyllaOrderStore {
	return &ScyllaOrderStore{}
}

func (s *ScyllaOrderStore) Insert(ctx context.Context, order models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	addressJSON, err := json.Marshal(order.Address)
	if err != nil {
		return err
	}

	if err := session.Query(`INSERT INTO orders (order_id, user_id, items, amount, address, status, payment_method, payment, created_at)
	                         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, string(itemsJSON), order.Amount, string(addressJSON),
		order.Status, order.PaymentMethod, order.Payment, order.Date).WithContext(ctx).Exec(); err != nil {
		return err
	}

	return session.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id) VALUES (?, ?, ?)`,
		order.UserID, order.Date, order.ID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) FindByID(ctx context.Context, id gocql.UUID) (models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return models.Order{}, err
	}
	return scanOrder(ctx, session, id)
}

func scanOrder(ctx context.Context, session *gocql.Session, id gocql.UUID) (models.Order, error) {
	var (
		order               models.Order
		itemsJSON, addrJSON string
	)

	err := session.Query(`SELECT order_id, user_id, items, amount, address, status, payment_method, payment, created_at
	                      FROM orders WHERE order_id = ?`, id).WithContext(ctx).Scan(
		&order.ID, &order.UserID, &itemsJSON, &order.Amount, &addrJSON,
		&order.Status, &order.PaymentMethod, &order.Payment, &order.Date)
	if err == gocql.ErrNotFound {
		return models.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, err
	}

	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal([]byte(addrJSON), &order.Address); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *ScyllaOrderStore) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ?`, userID).
		WithContext(ctx).Iter()

	var ids []gocql.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, oid := range ids {
		order, err := scanOrder(ctx, session, oid)
		if err == ErrOrderNotFound {
			// pointeur orphelin (commande supprimée après échec de paiement)
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	sortNewestFirst(orders)
	return orders, nil
}

func (s *ScyllaOrderStore) FindAll(ctx context.Context) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT order_id, user_id, items, amount, address, status, payment_method, payment, created_at FROM orders`).
		WithContext(ctx).Iter()

	var orders []models.Order
	var (
		order               models.Order
		itemsJSON, addrJSON string
	)
	for iter.Scan(&order.ID, &order.UserID, &itemsJSON, &order.Amount, &addrJSON,
		&order.Status, &order.PaymentMethod, &order.Payment, &order.Date) {
		if decodeOrderRow(&order, itemsJSON, addrJSON) {
			orders = append(orders, order)
		}
		order = models.Order{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	sortNewestFirst(orders)
	return orders, nil
}

func (s *ScyllaOrderStore) SetPaid(ctx context.Context, id gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	if _, err := scanOrder(ctx, session, id); err != nil {
		return err
	}
	return session.Query(`UPDATE orders SET payment = true WHERE order_id = ?`, id).
		WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) SetStatus(ctx context.Context, id gocql.UUID, status string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	if _, err := scanOrder(ctx, session, id); err != nil {
		return err
	}
	return session.Query(`UPDATE orders SET status = ? WHERE order_id = ?`, status, id).
		WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) Delete(ctx context.Context, id gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	order, err := scanOrder(ctx, session, id)
	if err != nil {
		return err
	}

	if err := session.Query(`DELETE FROM orders WHERE order_id = ?`, id).
		WithContext(ctx).Exec(); err != nil {
		return err
	}
	return session.Query(`DELETE FROM orders_by_user WHERE user_id = ? AND created_at = ? AND order_id = ?`,
		order.UserID, order.Date, order.ID).WithContext(ctx).Exec()
}

// decodeOrderRow désérialise les colonnes JSON d'une ligne commande.
// Une ligne aux items illisibles est ignorée mais jamais en silence.
func decodeOrderRow(order *models.Order, itemsJSON, addrJSON string) bool {
	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		log.Printf("⚠️ Commande %s ignorée, items illisibles: %v", order.ID, err)
		return false
	}
	if err := json.Unmarshal([]byte(addrJSON), &order.Address); err != nil {
		log.Printf("⚠️ Adresse illisible pour la commande %s: %v", order.ID, err)
	}
	return true
}

func sortNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Date.After(orders[j].Date)
	})
}

// =============================================
// IMPLÉMENTATION MÉMOIRE (tests et dev local)
// =============================================

type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[gocql.UUID]models.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[gocql.UUID]models.Order)}
}

func (s *MemoryOrderStore) Insert(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}

func (s *MemoryOrderStore) FindByID(_ context.Context, id gocql.UUID) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *MemoryOrderStore) FindByUser(_ context.Context, userID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *MemoryOrderStore) FindAll(_ context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *MemoryOrderStore) SetPaid(_ context.Context, id gocql.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Payment = true
	s.orders[id] = order
	return nil
}

func (s *MemoryOrderStore) SetStatus(_ context.Context, id gocql.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	s.orders[id] = order
	return nil
}

func (s *MemoryOrderStore) Delete(_ context.Context, id gocql.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}
