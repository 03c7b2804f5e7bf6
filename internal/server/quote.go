package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	quotedomain "github.com/owlbill/owlbill/internal/quote/domain"
	"github.com/owlbill/owlbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type LineItemRequest struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

type CreateQuoteRequest struct {
	ClientID   string            `json:"client_id"`
	Title      string            `json:"title"`
	Tax        decimal.Decimal   `json:"tax"`
	ExpiryDate *time.Time        `json:"expiry_date"`
	Items      []LineItemRequest `json:"items"`
}

type UpdateQuoteRequest struct {
	Title      *string           `json:"title"`
	Tax        *decimal.Decimal  `json:"tax"`
	ExpiryDate *time.Time        `json:"expiry_date"`
	Items      []LineItemRequest `json:"items"`
}

type TransitionQuoteRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.quoteSvc.Create(c.Request.Context(), quotedomain.CreateQuoteRequest{
		ClientID:   req.ClientID,
		Title:      req.Title,
		Tax:        req.Tax,
		ExpiryDate: req.ExpiryDate,
		Items:      toLineItemInputs(req.Items),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) ListQuotes(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := quotedomain.ListQuoteRequest{
		PageToken: page.PageToken,
		PageSize:  page.PageSize,
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		quoteStatus := quotedomain.QuoteStatus(status)
		req.Status = &quoteStatus
	}
	if clientID := strings.TrimSpace(c.Query("client_id")); clientID != "" {
		req.ClientID = &clientID
	}

	resp, err := s.quoteSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            resp.Quotes,
		"next_page_token": resp.NextPageToken,
		"has_more":        resp.HasMore,
	})
}

func (s *Server) GetQuoteByID(c *gin.Context) {
	item, err := s.quoteSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateQuote(c *gin.Context) {
	var req UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := quotedomain.UpdateQuoteRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		Title:      req.Title,
		Tax:        req.Tax,
		ExpiryDate: req.ExpiryDate,
	}
	if req.Items != nil {
		update.Items = toLineItemInputs(req.Items)
	}

	updated, err := s.quoteSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) TransitionQuote(c *gin.Context) {
	var req TransitionQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.quoteSvc.Transition(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		quotedomain.QuoteStatus(strings.TrimSpace(req.Status)),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) DeleteQuote(c *gin.Context) {
	if err := s.quoteSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) DownloadQuotePDF(c *gin.Context) {
	reader, filename, err := s.quoteSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
}

func toLineItemInputs(items []LineItemRequest) []quotedomain.LineItemInput {
	inputs := make([]quotedomain.LineItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, quotedomain.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	return inputs
}
