package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/utafrali/hybridsearch/internal/domain"
)

type categoryDef struct {
	ID          int
	Name        string
	Description string
	Types       []string
	// Price band in INR for products of this category.
	MinPrice, MaxPrice int
}

var categories = []categoryDef{
	{1, "Footwear", "Shoes, sandals and slippers", []string{"Running Shoes", "Sneakers", "Sandals", "Loafers", "Boots", "Slippers"}, 299, 4999},
	{2, "Clothing", "Everyday wear for men and women", []string{"T-Shirt", "Shirt", "Jeans", "Kurta", "Hoodie", "Jacket"}, 199, 3999},
	{3, "Accessories", "Bags, belts and wallets", []string{"Backpack", "Wallet", "Belt", "Sunglasses", "Cap"}, 149, 2499},
	{4, "Electronics", "Gadgets and audio", []string{"Earphones", "Headphones", "Smartwatch", "Power Bank", "Speaker"}, 499, 14999},
	{5, "Home", "Kitchen and living essentials", []string{"Mug", "Bedsheet", "Cushion Cover", "Lamp", "Water Bottle"}, 99, 1999},
}

var prefixes = []string{"Classic", "Urban", "Premium", "Everyday", "Sport", "Comfort", "Vintage", "Slim", "Pro", "Lite"}

var colors = []string{"Black", "White", "Navy", "Red", "Olive", "Grey", "Brown", "Beige", "Blue", "Green"}

// generatedProduct is a catalogue row before insertion.
type generatedProduct struct {
	domain.ProductRecord
	CategoryID int
}

// generateProducts builds n products deterministically from rng. Product ids
// run from 1 to n so re-runs overwrite the same rows.
func generateProducts(rng *rand.Rand, n int) []generatedProduct {
	products := make([]generatedProduct, 0, n)
	for i := 1; i <= n; i++ {
		cat := categories[(i-1)%len(categories)]
		productType := cat.Types[rng.Intn(len(cat.Types))]
		name := fmt.Sprintf("%s %s %s", prefixes[rng.Intn(len(prefixes))], colors[rng.Intn(len(colors))], productType)

		mrp := float64(cat.MinPrice + rng.Intn(cat.MaxPrice-cat.MinPrice+1))
		discount := mrp
		// 60% of products carry a 5-50% discount.
		if rng.Float64() < 0.60 {
			discount = math.Round(mrp*(0.50+rng.Float64()*0.45)*100) / 100
		}

		products = append(products, generatedProduct{
			ProductRecord: domain.ProductRecord{
				ProductID:           int64(i),
				Name:                name,
				MRP:                 mrp,
				DiscountPrice:       discount,
				Qty:                 rng.Intn(200),
				Image:               fmt.Sprintf("product-%05d.jpg", i),
				CategoryName:        cat.Name,
				CategoryDescription: cat.Description,
			},
			CategoryID: cat.ID,
		})
	}
	return products
}
