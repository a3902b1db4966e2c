package handlers

import (
	"errors"
	"net/http"

	"commonroom/services/booking"
	"commonroom/services/cancellation"

	"github.com/gin-gonic/gin"
)

// respondFlowError translates the booking core's typed errors into the
// user-visible responses the presentation layer renders. Nothing here is
// allowed to propagate and crash the process.
func respondFlowError(c *gin.Context, err error) {
	var insufficient *booking.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "insufficient balance",
			"token":     insufficient.Token,
			"required":  insufficient.Required.String(),
			"available": insufficient.Available.String(),
		})
		return
	}

	var commitConflict *booking.CommitConflictError
	if errors.As(err, &commitConflict) {
		resp := gin.H{
			"error":      "paid but not booked: your payment was captured but the slot was taken, contact an operator",
			"paymentRef": commitConflict.Receipt.TxRef,
			"amount":     commitConflict.Receipt.Amount.String(),
			"token":      commitConflict.Receipt.Token,
		}
		if commitConflict.Conflicting.ID != "" {
			resp["conflictingReservation"] = commitConflict.Conflicting.ID
		}
		c.JSON(http.StatusConflict, resp)
		return
	}

	var conflict *booking.ConflictFoundError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "that time conflicts with an existing reservation",
			"conflictingReservation": gin.H{
				"id":      conflict.Conflicting.ID,
				"summary": conflict.Conflicting.Summary,
				"start":   conflict.Conflicting.Start,
				"end":     conflict.Conflicting.End,
			},
		})
		return
	}

	var paymentFailed *booking.PaymentFailedError
	if errors.As(err, &paymentFailed) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment submission failed, no funds were moved", "details": paymentFailed.Reason})
		return
	}

	var refundFailed *cancellation.RefundFailedError
	if errors.As(err, &refundFailed) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":         "refund failed, your booking is kept and you can retry",
			"reservationId": refundFailed.ReservationID,
		})
		return
	}

	var flowErr *booking.FlowError
	if errors.As(err, &flowErr) {
		status := http.StatusBadRequest
		switch flowErr.Code {
		case "sessionExpired":
			status = http.StatusGone
		case "intervalHeld":
			status = http.StatusConflict
		case "unknownRoom", "unknownToken":
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": flowErr.Message, "code": flowErr.Code})
		return
	}

	var cancelErr *cancellation.FlowError
	if errors.As(err, &cancelErr) {
		status := http.StatusBadRequest
		switch cancelErr.Code {
		case "noPendingSelection":
			status = http.StatusGone
		case "reservationGone":
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": cancelErr.Message, "code": cancelErr.Code})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
}
