package middlewares

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yeremiapane/fuji-pos/models"
)

var registerOnce sync.Once

var oneOf = map[string][]string{
	"order_type":   {models.OrderTypeDineIn, models.OrderTypeTakeOut},
	"serving_type": {"glass", "bottle"},
	"print_method": {models.PrintMethodBrowser, models.PrintMethodThermal, models.PrintMethodPDF},
	"payment_method": {
		models.PaymentMethodCash, models.PaymentMethodCredit, models.PaymentMethodDebit,
		models.PaymentMethodGiftCard, models.PaymentMethodQRIS,
	},
}

// RegisterValidators adds the POS binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, allowed := range oneOf {
			allowed := allowed
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				value := fl.Field().String()
				for _, a := range allowed {
					if value == a {
						return true
					}
				}
				return false
			})
		}
	})
}
