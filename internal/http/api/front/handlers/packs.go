package handlers

import "github.com/vendstars/VendStarsEconomy/internal/models"

func toPackDTO(pack models.EntitlementPack) packDTO {
	return packDTO{
		ID:           pack.ID,
		PackType:     pack.PackType,
		UnitsPerDay:  pack.UnitsPerDay,
		DurationDays: pack.DurationDays,
		Status:       pack.Status,
		GrantedAt:    pack.GrantedAt,
		ExpiresAt:    pack.ExpiresAt,
	}
}
