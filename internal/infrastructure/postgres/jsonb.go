package postgres

import (
	"encoding/json"

	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

// Helpers de serialización para columnas JSONB. Los slices/maps nulos se
// escriben como documentos vacíos para que el scan posterior no falle.

func jsonbMaterials(materials []entity.BatchMaterial) []byte {
	if materials == nil {
		materials = []entity.BatchMaterial{}
	}
	data, _ := json.Marshal(materials)
	return data
}

func jsonbStrings(values []string) []byte {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return data
}

func jsonbStages(stages map[string]*entity.StageRecord) []byte {
	if stages == nil {
		stages = map[string]*entity.StageRecord{}
	}
	data, _ := json.Marshal(stages)
	return data
}

func jsonbBOM(lines []entity.BOMLine) []byte {
	if lines == nil {
		lines = []entity.BOMLine{}
	}
	data, _ := json.Marshal(lines)
	return data
}

func jsonbLots(lots []entity.ProductLot) []byte {
	if lots == nil {
		lots = []entity.ProductLot{}
	}
	data, _ := json.Marshal(lots)
	return data
}

// nullIfEmpty convierte "" en NULL para columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
