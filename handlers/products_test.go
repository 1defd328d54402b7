package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
)

func setupProductRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	handler := NewProductHandler(db, nil, zaptest.NewLogger(t))
	router := gin.New()
	router.GET("/products", handler.GetProducts)
	router.GET("/products/:id", handler.GetProduct)
	return router, mock, db
}

var productTestColumns = []string{
	"id", "name", "image", "price", "discount_price", "stock", "created_at", "updated_at",
}

func TestGetProducts(t *testing.T) {
	router, mock, db := setupProductRouter(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products ORDER BY id").
		WillReturnRows(sqlmock.NewRows(productTestColumns).
			AddRow(1, "Sweater", "/img/sweater.png", 49.99, nil, 12, time.Now(), time.Now()).
			AddRow(2, "Jacket", "/img/jacket.png", 120.0, 100.0, 3, time.Now(), time.Now()))

	req := httptest.NewRequest("GET", "/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var products []models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}
	if products[0].DiscountPrice != nil {
		t.Error("Expected no discount on first product")
	}
	if products[1].DiscountPrice == nil || *products[1].DiscountPrice != 100.0 {
		t.Errorf("Expected discount 100.00 on second product, got %+v", products[1].DiscountPrice)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestGetProduct(t *testing.T) {
	router, mock, db := setupProductRouter(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(productTestColumns).
			AddRow(1, "Sweater", "/img/sweater.png", 49.99, nil, 12, time.Now(), time.Now()))

	req := httptest.NewRequest("GET", "/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var product models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if product.Name != "Sweater" || product.Stock != 12 {
		t.Errorf("Unexpected product: %+v", product)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	router, mock, db := setupProductRouter(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest("GET", "/products/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetProduct_InvalidID(t *testing.T) {
	router, _, db := setupProductRouter(t)
	defer db.Close()

	req := httptest.NewRequest("GET", "/products/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
