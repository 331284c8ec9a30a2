package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"scada_quote_backend/internal/quotes/service"

	"github.com/gin-gonic/gin"
)

const contentTypePDF = "application/pdf"

func streamPDF(c *gin.Context, file *service.PDFFile) {
	defer func() { _ = file.Reader.Close() }()

	c.Header("Content-Type", contentTypePDF)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.FileName))
	if file.Size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, file.Reader); err != nil {
		_ = c.Error(err)
	}
}
