package scraper

import (
	"strings"

	"github.com/alvarorichard/Gomanga/internal/models"
)

// statusTable maps lowercased source vocabulary to canonical statuses
type statusTable map[string]models.Status

// NormalizeStatus looks raw up in table; unmapped values become Unknown
func NormalizeStatus(table statusTable, raw string) models.Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := table[key]; ok {
		return status
	}
	return models.StatusUnknown
}

var (
	mangadexStatuses = statusTable{
		"ongoing":   models.StatusOngoing,
		"completed": models.StatusCompleted,
		"hiatus":    models.StatusHiatus,
		"cancelled": models.StatusCancelled,
	}

	allAnimeStatuses = statusTable{
		"releasing":        models.StatusOngoing,
		"finished":         models.StatusCompleted,
		"not yet released": models.StatusOngoing,
		"cancelled":        models.StatusCancelled,
		"on hiatus":        models.StatusHiatus,
	}

	asuraStatuses = statusTable{
		"ongoing":    models.StatusOngoing,
		"completed":  models.StatusCompleted,
		"hiatus":     models.StatusHiatus,
		"season end": models.StatusHiatus,
		"dropped":    models.StatusCancelled,
		"cancelled":  models.StatusCancelled,
	}

	madaraStatuses = statusTable{
		"ongoing":    models.StatusOngoing,
		"on going":   models.StatusOngoing,
		"updating":   models.StatusOngoing,
		"completed":  models.StatusCompleted,
		"complete":   models.StatusCompleted,
		"completado": models.StatusCompleted,
		"end":        models.StatusCompleted,
		"on hold":    models.StatusHiatus,
		"hiatus":     models.StatusHiatus,
		"canceled":   models.StatusCancelled,
		"cancelled":  models.StatusCancelled,
		"dropped":    models.StatusCancelled,
	}

	comickStatuses = statusTable{
		"1": models.StatusOngoing,
		"2": models.StatusCompleted,
		"3": models.StatusCancelled,
		"4": models.StatusHiatus,
	}
)
