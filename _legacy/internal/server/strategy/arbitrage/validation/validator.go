package validation

import (
	"analysis/internal/server/strategy/arbitrage"
	"context"
)

// Validator 风险验证器实现
type Validator struct {
	// TODO: 注入依赖，如市场风险评估工具等
}

// NewValidator 创建验证器
func NewValidator() arbitrage.RiskValidator {
	return &Validator{}
}

// ValidateArbitrageRisk 验证套利风险
func (v *Validator) ValidateArbitrageRisk(ctx context.Context, opportunity *arbitrage.ArbitrageOpportunity) (*arbitrage.ValidationResult, error) {
	// TODO: 实现套利风险验证逻辑
	// 这里应该：
	// 1. 评估流动性风险
	// 2. 评估滑点风险
	// 3. 评估执行风险
	// 4. 计算整体风险评分

	result := &arbitrage.ValidationResult{
		Opportunity: opportunity,
		IsValid:     false,
		Action:      "arbitrage",
		Reason:      "套利风险验证暂未实现",
		RiskLevel:   v.AssessLiquidityRisk(opportunity.Volume, nil), // TODO: 传入配置
		Score:       v.CalculateOverallRiskScore(opportunity),
	}

	return result, nil
}

// AssessLiquidityRisk 评估流动性风险
func (v *Validator) AssessLiquidityRisk(volume float64, config *arbitrage.ArbitrageConfig) string {
	// TODO: 实现流动性风险评估逻辑
	// 这里应该：
	// 1. 根据交易量大小评估流动性
	// 2. 返回风险等级：low, medium, high

	if volume > 10000 {
		return "low"
	} else if volume > 1000 {
		return "medium"
	}
	return "high"
}

// AssessSlippageRisk 评估滑点风险
func (v *Validator) AssessSlippageRisk(expectedProfit, maxSlippage float64) string {
	// TODO: 实现滑点风险评估逻辑
	// 这里应该：
	// 1. 计算滑点占预期利润的比例
	// 2. 返回风险等级

	if expectedProfit <= 0 {
		return "high"
	}

	slippageRatio := maxSlippage / expectedProfit
	if slippageRatio < 0.1 {
		return "low"
	} else if slippageRatio < 0.3 {
		return "medium"
	}
	return "high"
}

// CalculateOverallRiskScore 计算整体风险评分
func (v *Validator) CalculateOverallRiskScore(opportunity *arbitrage.ArbitrageOpportunity) float64 {
	// TODO: 实现整体风险评分计算逻辑
	// 这里应该：
	// 1. 综合考虑各种风险因素
	// 2. 返回0-1之间的风险评分（越高风险越大）

	// 简单的基于利润百分比的风险评分
	if opportunity.ProfitPercent > 2.0 {
		return 0.9 // 高利润通常伴随高风险
	} else if opportunity.ProfitPercent > 1.0 {
		return 0.6
	} else if opportunity.ProfitPercent > 0.5 {
		return 0.3
	}
	return 0.1 // 低利润通常风险较低
}
