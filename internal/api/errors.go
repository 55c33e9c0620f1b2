package api

import (
	"errors"
	"net/http"

	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/gin-gonic/gin"
)

// writeError maps lifecycle errors to HTTP responses. Unknown errors become
// 500 without leaking their text.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	var (
		validation *staking.ValidationError
		notFound   *staking.NotFoundError
		notMature  *staking.NotMatureError
		unstaked   *staking.AlreadyUnstakedError
		claimed    *staking.AlreadyClaimedError
	)
	_ = c.Error(err)

	switch {
	case errors.As(err, &validation):
		s.metrics.Rejected(op, "validation")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation",
			"field":   validation.Field,
			"message": validation.Error(),
		})
	case errors.As(err, &notFound):
		s.metrics.Rejected(op, "not_found")
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "not_found",
			"kind":    notFound.Kind,
			"id":      notFound.ID,
			"message": notFound.Error(),
		})
	case errors.As(err, &notMature):
		s.metrics.Rejected(op, "not_mature")
		c.JSON(http.StatusConflict, gin.H{
			"success":   false,
			"error":     "not_mature",
			"stakeId":   notMature.StakeID,
			"maturesAt": notMature.MaturesAt,
			"message":   notMature.Error(),
		})
	case errors.As(err, &unstaked):
		s.metrics.Rejected(op, "already_unstaked")
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "already_unstaked",
			"stakeId": unstaked.StakeID,
			"message": unstaked.Error(),
		})
	case errors.As(err, &claimed):
		s.metrics.Rejected(op, "already_claimed")
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "already_claimed",
			"stakeId": claimed.StakeID,
			"message": claimed.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal",
			"message": "internal error",
		})
	}
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "bad_request",
		"message": err.Error(),
	})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   "forbidden",
		"message": "stake belongs to another user",
	})
}
