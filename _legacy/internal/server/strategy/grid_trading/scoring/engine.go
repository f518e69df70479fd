package scoring

import (
	"analysis/internal/server/strategy/grid_trading"
	"context"
	"fmt"
	"math"
)

// Engine 评分引擎实现
type Engine struct {
	// 这里可以注入依赖，如数据服务等
}

// NewEngine 创建评分引擎
func NewEngine() grid_trading.ScoringEngine {
	return &Engine{}
}

// CalculateVolatilityScore 计算波动率评分
func (e *Engine) CalculateVolatilityScore(ctx context.Context, symbol string) (float64, error) {
	// 这里实现波动率计算逻辑
	// 基于价格变化的标准差等指标
	// 暂时返回一个模拟值
	score := 0.75 // 模拟中等波动率

	if score < 0 || score > 1 {
		return 0, fmt.Errorf("波动率评分超出范围: %f", score)
	}

	return score, nil
}

// CalculateLiquidityScore 计算流动性评分
func (e *Engine) CalculateLiquidityScore(ctx context.Context, symbol string) (float64, error) {
	// 这里实现流动性计算逻辑
	// 基于交易量、买卖价差等指标
	// 暂时返回一个模拟值
	score := 0.8 // 模拟良好流动性

	if score < 0 || score > 1 {
		return 0, fmt.Errorf("流动性评分超出范围: %f", score)
	}

	return score, nil
}

// CalculateStabilityScore 计算稳定性评分
func (e *Engine) CalculateStabilityScore(ctx context.Context, symbol string) (float64, error) {
	// 这里实现稳定性计算逻辑
	// 基于价格趋势的稳定性等指标
	// 暂时返回一个模拟值
	score := 0.6 // 模拟一般稳定性

	if score < 0 || score > 1 {
		return 0, fmt.Errorf("稳定性评分超出范围: %f", score)
	}

	return score, nil
}

// CalculateOverallScore 计算整体评分
func (e *Engine) CalculateOverallScore(volatility, liquidity, stability float64) float64 {
	// 加权计算整体评分
	// 波动率权重30%，流动性权重40%，稳定性权重30%
	overallScore := volatility*0.3 + liquidity*0.4 + stability*0.3

	// 确保在0-1范围内
	return math.Max(0, math.Min(1, overallScore))
}
