package http

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

type featureUsage struct {
	Name   string `json:"name"`
	Splits int    `json:"splits"`
}

// modelHandler reports the loaded artifact and how often the forest splits on
// each feature, most used first.
func modelHandler(info ModelInfo) echo.HandlerFunc {
	features := make([]featureUsage, len(info.Features))
	for i, name := range info.Features {
		features[i] = featureUsage{Name: name}
		if i < len(info.Splits) {
			features[i].Splits = info.Splits[i]
		}
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Splits > features[j].Splits
	})

	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"version":  info.Version,
			"trees":    info.Trees,
			"width":    len(info.Features),
			"features": features,
		})
	}
}
