package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zeloura/api/internal/helpers"
	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/services"
)

func CreateProduct(ps *services.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c)
		if !ok {
			return
		}

		if !admin.HasPermission(models.ResourceProducts, models.ActionWrite) {
			c.JSON(http.StatusForbidden, helpers.ErrorResponse("missing write permission on products"))
			return
		}

		var product models.Product
		if err := c.ShouldBindJSON(&product); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		created, err := ps.CreateProduct(c.Request.Context(), &product)
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, helpers.SuccessResponse(created, "Product created successfully"))
	}
}

func ListProducts(ps *services.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := ps.ListProducts(c.Request.Context(), c.Query("category"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(products, ""))
	}
}

func GetProductByID(ps *services.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")
		if productID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("product ID is required"))
			return
		}

		product, err := ps.GetProductByID(c.Request.Context(), productID)
		if err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, helpers.ErrorResponse("product not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(product, ""))
	}
}

func SearchProducts(ps *services.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("search query is required"))
			return
		}

		products, err := ps.SearchProducts(c.Request.Context(), query)
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(products, ""))
	}
}

func UpdateProduct(ps *services.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c)
		if !ok {
			return
		}

		if !admin.HasPermission(models.ResourceProducts, models.ActionWrite) {
			c.JSON(http.StatusForbidden, helpers.ErrorResponse("missing write permission on products"))
			return
		}

		productID := c.Param("id")
		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		updated, err := ps.UpdateProduct(c.Request.Context(), productID, fields)
		if err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, helpers.ErrorResponse("product not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(updated, "Product updated successfully"))
	}
}

func DeleteProduct(ps *services.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c)
		if !ok {
			return
		}

		if !admin.HasPermission(models.ResourceProducts, models.ActionDelete) {
			c.JSON(http.StatusForbidden, helpers.ErrorResponse("missing delete permission on products"))
			return
		}

		productID := c.Param("id")
		if err := ps.DeleteProduct(c.Request.Context(), productID); err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, helpers.ErrorResponse("product not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "product deleted successfully"))
	}
}
