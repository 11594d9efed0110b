package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmgreenstreet/current-cats-iframe/internal/gateway"
	"github.com/rmgreenstreet/current-cats-iframe/internal/reconcile"
)

// webhookEnvelope is the payload shape the payments service delivers.
type webhookEnvelope struct {
	Data struct {
		Object struct {
			Payment gateway.Payment `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// handleWebhook acknowledges a payment webhook. The receipt is written before
// the 202 so an event is never acknowledged without forensic evidence; the
// grant flow itself runs after the response, decoupling the sender's retry
// timer from downstream latency. Redelivery after acknowledgment is expected
// and handled by the flow's idempotency tokens.
func (s *Server) handleWebhook(c *gin.Context) {
	var envelope webhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}

	payment := envelope.Data.Object.Payment
	if payment.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no payment id specified",
		})
		return
	}

	if _, err := s.ledger.RecordReceipt(payment.ID); err != nil {
		log.Printf("web: receipt write failed for payment %s: %v", payment.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to record receipt",
		})
		return
	}

	c.String(http.StatusAccepted, "Request Received")

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		// Gin's recovery middleware does not cover goroutines outliving the
		// handler; a panicking flow must not take the server down.
		defer func() {
			if r := recover(); r != nil {
				log.Printf("web: grant flow panicked for payment %s: %v", payment.ID, r)
			}
		}()
		s.flow.Process(context.Background(), payment)
	}()
}

// handleReconcile reports an ETA page and kicks off the sweep asynchronously.
// Only one sweep runs at a time.
func (s *Server) handleReconcile(c *gin.Context) {
	if !s.sweepRunning.CompareAndSwap(false, true) {
		c.Data(http.StatusConflict, "text/html; charset=utf-8",
			[]byte("<h1>Loyalty Points Update Already Running</h1><p>Please wait for the current run to finish.</p>"))
		return
	}

	count, err := s.sweeper.EstimateAccounts(c.Request.Context())
	if err != nil {
		s.sweepRunning.Store(false)
		log.Printf("web: reconcile estimate failed: %v", err)
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
			[]byte("There was an issue updating loyalty account point amounts. Please refresh the page to try again. If the issue persists, contact the administrator."))
		return
	}

	minutes := reconcile.EstimateMinutes(count)
	start := time.Now()
	finish := start.Add(time.Duration(minutes) * time.Minute)

	page := fmt.Sprintf(`<div style="margin-left: 20%%; margin-top: 3em">
<h1>Loyalty Points Update Started</h1>
<h2>%d Loyalty Accounts To Process</h2>
<p>This page will not update after loyalty points have been processed.</p>
<p>Accounts take about 2 seconds each to process, so please allow at least %d minutes.</p>
<p>Started: %s. Expected Completion: %s.</p>
</div>`, count, minutes, start.Format(time.Kitchen), finish.Format(time.Kitchen))

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.sweepRunning.Store(false)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("web: reconciliation sweep panicked: %v", r)
			}
		}()
		if _, err := s.sweeper.Run(context.Background()); err != nil {
			log.Printf("web: reconciliation sweep failed: %v", err)
		}
	}()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Audit API handlers

func (s *Server) handleListOutcomes(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	outcomes, err := s.ledger.ListOutcomes(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

func (s *Server) handleGetOutcome(c *gin.Context) {
	paymentID := c.Param("payment_id")

	outcome, err := s.ledger.GetOutcome(paymentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "outcome not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"outcome": outcome,
	})
}

func (s *Server) handleListReceipts(c *gin.Context) {
	paymentID := c.Param("payment_id")

	receipts, err := s.ledger.ListReceipts(paymentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"receipts": receipts,
		"count":    len(receipts),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	counts, err := s.ledger.CountOutcomesByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	receipts, err := s.ledger.CountReceipts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"outcomes": counts,
		"receipts": receipts,
	})
}
