package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name             string          `json:"planName"`
	DurationMinutes  int64           `json:"duration"`
	MinimumAmount    decimal.Decimal `json:"minimumAmount"`
	RewardPercentage decimal.Decimal `json:"rewardPercentage"`
}

// CreateStakeRequest carries the stake form. The amount may be a JSON number
// or a string; any userId in the body is ignored in favor of the session.
type CreateStakeRequest struct {
	PlanID string          `json:"planId"`
	Amount json.RawMessage `json:"amount"`
}

type UnstakeRequest struct {
	StakingID string `json:"stakingId" binding:"required"`
	// Amount must be "full" or omitted; partial unstaking is not supported.
	Amount string `json:"amount"`
}

type ClaimRewardsRequest struct {
	StakeID string `json:"stakeId" binding:"required"`
}

func (s *Server) Health(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.staking.ListPlans(c.Request.Context())
	if err != nil {
		s.writeError(c, "list_plans", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": plans})
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	plan, err := s.staking.CreatePlan(c.Request.Context(), staking.PlanParams{
		Name:             req.Name,
		DurationMinutes:  req.DurationMinutes,
		MinimumAmount:    req.MinimumAmount,
		RewardPercentage: req.RewardPercentage,
	})
	if err != nil {
		s.writeError(c, "create_plan", err)
		return
	}
	s.metrics.PlanCreated()

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Plan created successfully",
		"data":    plan,
	})
}

func (s *Server) CreateStake(c *gin.Context) {
	var req CreateStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	amount, err := amountText(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	stake, err := s.staking.CreateStakeFromString(c.Request.Context(),
		identity(c).UserID, req.PlanID, amount, s.now())
	if err != nil {
		s.writeError(c, "create_stake", err)
		return
	}
	s.metrics.StakeCreated()

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Staking successful",
		"data":    stake,
	})
}

// amountText accepts `12.5`, `"12.5"` or a missing amount.
func amountText(raw json.RawMessage) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return text, nil
}

func (s *Server) GetStakesByUser(c *gin.Context) {
	userID := c.Param("userId")
	if id := identity(c); id.UserID != userID && !id.Admin {
		forbidden(c)
		return
	}

	stakes, err := s.staking.ListStakesForUser(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, "list_stakes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Staking details retrieved successfully",
		"stakedData": stakes,
	})
}

func (s *Server) ListStakes(c *gin.Context) {
	stakes, err := s.staking.ListStakes(c.Request.Context())
	if err != nil {
		s.writeError(c, "list_stakes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "staking": stakes})
}

func (s *Server) Unstake(c *gin.Context) {
	var req UnstakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Amount != "" && req.Amount != "full" {
		badRequest(c, errors.New(`amount must be "full"`))
		return
	}
	if !s.ownsStake(c, "unstake", req.StakingID) {
		return
	}

	stake, err := s.staking.Unstake(c.Request.Context(), req.StakingID, s.now())
	if err != nil {
		s.writeError(c, "unstake", err)
		return
	}
	s.metrics.Unstaked()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Staking details updated successfully",
		"data":    stake,
	})
}

func (s *Server) ClaimRewards(c *gin.Context) {
	var req ClaimRewardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !s.ownsStake(c, "claim_rewards", req.StakeID) {
		return
	}

	reward, stake, err := s.staking.ClaimRewards(c.Request.Context(), req.StakeID, s.now())
	if err != nil {
		s.writeError(c, "claim_rewards", err)
		return
	}
	s.metrics.RewardClaimed(reward)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Rewards claimed successfully",
		"claimedAmount": reward,
		"data":          stake,
	})
}

// ownsStake writes the error response and returns false unless the session
// user owns stakeID or is an administrator.
func (s *Server) ownsStake(c *gin.Context, op, stakeID string) bool {
	id := identity(c)
	if id.Admin {
		return true
	}
	stake, err := s.staking.GetStake(c.Request.Context(), stakeID)
	if err != nil {
		s.writeError(c, op, err)
		return false
	}
	if stake.UserID != id.UserID {
		forbidden(c)
		return false
	}
	return true
}
