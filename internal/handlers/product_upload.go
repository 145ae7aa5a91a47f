package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// productInput carries the admin product fields; each *Set flag records
// whether the field was sent.
type productInput struct {
	Name           string
	NameSet        bool
	Description    string
	DescriptionSet bool
	Price          float64
	PriceSet       bool
	SaleEnabled    bool
	SaleEnabledSet bool
	SalePrice      float64
	SalePriceSet   bool
	WeightLabel    string
	WeightLabelSet bool
	Stock          int
	StockSet       bool
	IsActive       bool
	IsActiveSet    bool
	ImagePath      string
	ImageSet       bool
}

// lastPostForm returns the final value of a repeated form field. HTML
// checkboxes paired with a hidden "false" input send both.
func lastPostForm(c *gin.Context, key string) (string, bool) {
	values, ok := c.GetPostFormArray(key)
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

func parseMultipartProductRequest(c *gin.Context, uploads Uploads) (productInput, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return productInput{}, err
	}

	input := productInput{}

	if value, ok := lastPostForm(c, "name"); ok {
		input.Name = strings.TrimSpace(value)
		input.NameSet = true
	}
	if value, ok := lastPostForm(c, "description"); ok {
		input.Description = strings.TrimSpace(value)
		input.DescriptionSet = true
	}
	if value, ok := lastPostForm(c, "weightLabel"); ok {
		input.WeightLabel = strings.TrimSpace(value)
		input.WeightLabelSet = true
	}

	if value, ok := lastPostForm(c, "price"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productInput{}, errors.New("price must be a number")
		}
		input.Price = parsed
		input.PriceSet = true
	}
	if value, ok := lastPostForm(c, "salePrice"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productInput{}, errors.New("salePrice must be a number")
		}
		input.SalePrice = parsed
		input.SalePriceSet = true
	}
	if value, ok := lastPostForm(c, "stock"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return productInput{}, errors.New("stock must be an integer")
		}
		input.Stock = parsed
		input.StockSet = true
	}

	if value, ok := lastPostForm(c, "saleEnabled"); ok {
		parsed, err := parseBoolValue(value)
		if err != nil {
			return productInput{}, errors.New("saleEnabled must be boolean")
		}
		input.SaleEnabled = parsed
		input.SaleEnabledSet = true
	}
	if value, ok := lastPostForm(c, "isActive"); ok {
		parsed, err := parseBoolValue(value)
		if err != nil {
			return productInput{}, errors.New("isActive must be boolean")
		}
		input.IsActive = parsed
		input.IsActiveSet = true
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		imagePath, err := uploads.SaveProductImage(file)
		if err != nil {
			return productInput{}, err
		}
		input.ImagePath = imagePath
		input.ImageSet = true
	case errors.Is(err, http.ErrMissingFile):
	default:
		return productInput{}, err
	}

	return input, nil
}

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
