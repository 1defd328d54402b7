package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/cache"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/models"
)

// ProductHandler serves catalog reads so clients can validate carts before
// placing an order. The authoritative stock check still happens inside the
// placement transaction.
type ProductHandler struct {
	db     *sql.DB
	rdb    *redis.Client
	logger *zap.Logger
}

func NewProductHandler(db *sql.DB, rdb *redis.Client, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{db: db, rdb: rdb, logger: logger}
}

const productColumns = "id, name, image, price, discount_price, stock, created_at, updated_at"

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	rows, err := h.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan product", zap.Error(err))
			continue
		}
		products = append(products, p)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("fulfillment-service").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	if h.rdb != nil {
		if cached, err := cache.GetProduct(ctx, h.rdb, productID); err == nil {
			var product models.Product
			if err := json.Unmarshal(cached, &product); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.JSON(http.StatusOK, product)
				return
			}
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
	}

	var product models.Product
	row := h.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", productID)
	if err := scanProduct(row, &product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to fetch product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	if h.rdb != nil {
		if err := cache.SetProduct(ctx, h.rdb, productID, product); err != nil {
			h.logger.Warn("Failed to cache product", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, product)
}

func scanProduct(row interface{ Scan(...interface{}) error }, p *models.Product) error {
	var discountPrice sql.NullFloat64
	err := row.Scan(&p.ID, &p.Name, &p.Image, &p.Price, &discountPrice,
		&p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	if discountPrice.Valid {
		p.DiscountPrice = &discountPrice.Float64
	}
	return nil
}
