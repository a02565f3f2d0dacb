package productcontroller

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/northcart/ecommerce-api/payment"
)

// priceref validates that a field is a well-formed processor price
// identifier. Registered at package init so every binder sees it.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("priceref", func(fl validator.FieldLevel) bool {
			return payment.ValidPriceID(fl.Field().String())
		})
	}
}
