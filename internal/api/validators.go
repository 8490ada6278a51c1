package api

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"example.com/freightlink/services/marketplace/internal/model"
)

var truckTypes = map[string]bool{
	string(model.TruckTypeFlatbed):      true,
	string(model.TruckTypeBox):          true,
	string(model.TruckTypeRefrigerated): true,
	string(model.TruckTypeTanker):       true,
	string(model.TruckTypeContainer):    true,
}

var loadModes = map[string]bool{
	string(model.LoadModeFull):    true,
	string(model.LoadModePartial): true,
}

// registerValidations adds the domain enum checks to gin's binding validator.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("trucktype", func(fl validator.FieldLevel) bool {
		return truckTypes[fl.Field().String()]
	})
	_ = v.RegisterValidation("loadmode", func(fl validator.FieldLevel) bool {
		return loadModes[fl.Field().String()]
	})
}
