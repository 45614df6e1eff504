package store

import (
	"context"
	"testing"
)

func TestMemoryCartAddIncrements(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	if err := s.Add(ctx, "u1", "P1", "M"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, "u1", "P1", "M"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, "u1", "P1", "L"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cart, err := s.Read(ctx, "u1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cart["P1"]["M"] != 2 {
		t.Errorf("quantité P1/M = %d, attendu 2", cart["P1"]["M"])
	}
	if cart["P1"]["L"] != 1 {
		t.Errorf("quantité P1/L = %d, attendu 1", cart["P1"]["L"])
	}
}

func TestMemoryCartSetQuantity(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	if err := s.SetQuantity(ctx, "u1", "P1", "M", 5); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	cart, _ := s.Read(ctx, "u1")
	if cart["P1"]["M"] != 5 {
		t.Errorf("quantité = %d, attendu 5", cart["P1"]["M"])
	}

	// quantité 0 : l'entrée disparaît, le produit est élagué
	if err := s.SetQuantity(ctx, "u1", "P1", "M", 0); err != nil {
		t.Fatalf("SetQuantity(0): %v", err)
	}
	cart, _ = s.Read(ctx, "u1")
	if len(cart) != 0 {
		t.Errorf("panier = %v, attendu vide", cart)
	}
}

func TestMemoryCartSetQuantityZeroOnMissingEntry(t *testing.T) {
	s := NewMemoryCartStore()

	if err := s.SetQuantity(context.Background(), "u1", "P1", "M", 0); err != nil {
		t.Fatalf("SetQuantity sur entrée absente: %v", err)
	}
}

func TestMemoryCartClear(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	s.Add(ctx, "u1", "P1", "M")
	s.Add(ctx, "u1", "P2", "S")
	s.Add(ctx, "u2", "P1", "M")

	if err := s.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	cart, _ := s.Read(ctx, "u1")
	if len(cart) != 0 {
		t.Errorf("panier u1 = %v, attendu vide", cart)
	}

	// le panier d'un autre utilisateur ne bouge pas
	other, _ := s.Read(ctx, "u2")
	if other["P1"]["M"] != 1 {
		t.Errorf("panier u2 = %v, attendu P1/M=1", other)
	}
}

func TestCartFieldRoundTripWithColonInSize(t *testing.T) {
	const productID = "c0a80101-0000-1000-8000-00805f9b34fb"

	// les tailles sont du texte libre : "EU:42" doit survivre au round-trip
	field := cartField(productID, "EU:42")
	gotProduct, gotSize, ok := splitCartField(field)
	if !ok {
		t.Fatalf("champ %q rejeté", field)
	}
	if gotProduct != productID {
		t.Errorf("productID = %q, attendu %q", gotProduct, productID)
	}
	if gotSize != "EU:42" {
		t.Errorf("taille = %q, attendu \"EU:42\"", gotSize)
	}
}

func TestSplitCartFieldRejectsMalformed(t *testing.T) {
	for _, field := range []string{"", ":", "sans-separateur", ":M", "p1:"} {
		if _, _, ok := splitCartField(field); ok {
			t.Errorf("champ malformé %q accepté", field)
		}
	}
}

func TestMemoryCartReadReturnsCopy(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	s.Add(ctx, "u1", "P1", "M")

	cart, _ := s.Read(ctx, "u1")
	cart["P1"]["M"] = 99

	fresh, _ := s.Read(ctx, "u1")
	if fresh["P1"]["M"] != 1 {
		t.Errorf("le store a été modifié via la copie retournée: %v", fresh)
	}
}
