package models

// CartData : productId → taille → quantité.
// Invariant : quantité > 0, les entrées à zéro sont élaguées immédiatement.
type CartData map[string]map[string]int
