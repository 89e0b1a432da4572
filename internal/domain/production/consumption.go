package production

import "github.com/shopspring/decimal"

// DefaultConsumption ley de consumo por defecto de un material en una etapa
// (servicio de dominio): aceptadas × (cantidad planificada / cantidad a
// fabricar). La cantidad del material ya viene escalada al lote, así que la
// división recupera la tasa por pieza.
func DefaultConsumption(accepted, plannedQty, quantityToBuild decimal.Decimal) decimal.Decimal {
	if quantityToBuild.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return accepted.Mul(plannedQty).Div(quantityToBuild)
}

// Deduct aplica un descuento con piso en cero: devuelve el nuevo saldo y la
// cantidad efectivamente descontada (min(consumo, saldo)). El saldo nunca
// queda negativo; el faltante es una condición de integridad que el caller
// registra, no se absorbe en otro lado.
func Deduct(oldQuantity, consumption decimal.Decimal) (newQuantity, deducted decimal.Decimal) {
	if consumption.LessThanOrEqual(decimal.Zero) {
		return oldQuantity, decimal.Zero
	}
	if consumption.GreaterThanOrEqual(oldQuantity) {
		return decimal.Zero, oldQuantity
	}
	return oldQuantity.Sub(consumption), consumption
}
