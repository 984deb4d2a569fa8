package http

import "github.com/gin-gonic/gin"

// Register registers the envelope analysis routes. upload runs before every
// handler that accepts a file.
func (h *Handler) Register(rg *gin.RouterGroup, upload ...gin.HandlerFunc) {
	withUpload := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, upload...), hf)
	}

	rg.GET("/experiment-types", h.ListTypes)
	rg.POST("/experiment-types", h.CreateType)
	rg.DELETE("/experiment-types/:id", h.DeleteType)

	rg.GET("/experiment-data/:id", h.ListDatasets)
	rg.GET("/experiment-data/:id/info", h.DatasetInfo)
	rg.POST("/experiment-data/:id/historical", h.SetHistorical)
	rg.DELETE("/experiment-data/:id", h.DeleteDataset)

	rg.POST("/preview/:id", withUpload(h.Preview)...)
	rg.POST("/upload/:id", withUpload(h.Upload)...)

	env := rg.Group("/envelope/:id")
	env.GET("/info", h.EnvelopeInfo)
	env.GET("/settings", h.GetSettings)
	env.POST("/settings", h.SaveSettings)
	env.POST("/envelope", h.Envelope)
	env.POST("/temp-upload", withUpload(h.TempUpload)...)
	env.POST("/compare", h.Compare)
	env.POST("/save-temp", h.SaveTemp)
	env.POST("/delete-temp", h.DeleteTemp)
}
