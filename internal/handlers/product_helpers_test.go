package handlers

import (
	"encoding/json"
	"strings"
	"testing"

	"pureplatter/internal/models"
)

func TestPresentProductJSONIncludesSaleFlags(t *testing.T) {
	product := models.Product{Name: "Test", Price: 120, SaleEnabled: true, SalePrice: 99, Stock: 10}
	presentProduct(&product)

	body, err := json.Marshal(product)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}

	jsonBody := string(body)
	if !strings.Contains(jsonBody, "\"salePrice\":99") {
		t.Fatalf("expected salePrice in response json, got %s", jsonBody)
	}
	if !strings.Contains(jsonBody, "\"isOnSale\":true") {
		t.Fatalf("expected isOnSale=true in response json, got %s", jsonBody)
	}
	if !strings.Contains(jsonBody, "\"inStock\":true") {
		t.Fatalf("expected inStock=true in response json, got %s", jsonBody)
	}
}

func TestApplyProductInputRejectsSaleAbovePrice(t *testing.T) {
	product := models.Product{Name: "Jollof Tray", Price: 100, Stock: 3}
	err := applyProductInput(&product, productInput{
		SaleEnabled: true, SaleEnabledSet: true,
		SalePrice: 150, SalePriceSet: true,
	})
	if err == nil {
		t.Fatal("expected sale above price to be rejected")
	}
	if product.SaleEnabled {
		t.Fatal("sale applied despite the error")
	}
}

func TestApplyProductInputStartsSale(t *testing.T) {
	product := models.Product{Name: "Jollof Tray", Price: 100, Stock: 3}
	err := applyProductInput(&product, productInput{
		Price: 120, PriceSet: true,
		SaleEnabled: true, SaleEnabledSet: true,
		SalePrice: 90, SalePriceSet: true,
	})
	if err != nil {
		t.Fatalf("applyProductInput returned error: %v", err)
	}
	if got := product.EffectivePrice(); got != 90 {
		t.Fatalf("expected effective price 90, got %v", got)
	}
}
