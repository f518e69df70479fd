package main

import (
	"fmt"
)

func main() {
	fmt.Println("🧪 订单详情页面显示逻辑解释")
	fmt.Println("============================")

	fmt.Println("\n📋 问题场景")
	fmt.Println("用户反映：启动策略设置100 USDT，订单详情页面显示成交金额300 USDT")
	fmt.Println("用户疑惑：为什么显示300而不是100？")

	fmt.Println("\n🔍 深入分析")

	fmt.Println("\n期货交易的基本概念：")
	fmt.Println("• 保证金 (Margin): 用户实际投入的资金")
	fmt.Println("• 杠杆倍数 (Leverage): 放大倍数")
	fmt.Println("• 名义价值 (Notional Value): 合约的总价值")
	fmt.Println("• 计算公式: 名义价值 = 保证金 × 杠杆倍数")

	fmt.Println("\n具体案例分析：")

	userMargin := 100.0    // 用户设置的保证金
	leverage := 3.0         // 杠杆倍数
	notionalValue := userMargin * leverage  // 名义价值

	fmt.Printf("\n用户设置参数:\n")
	fmt.Printf("  每一单金额: %.0f USDT (用户理解为保证金)\n", userMargin)
	fmt.Printf("  杠杆倍数: %.0f倍\n", leverage)

	fmt.Printf("\n系统计算逻辑:\n")
	fmt.Printf("  保证金: %.0f USDT\n", userMargin)
	fmt.Printf("  名义价值: %.0f × %.0f = %.0f USDT\n", userMargin, leverage, notionalValue)

	fmt.Printf("\n页面显示逻辑:\n")
	fmt.Printf("  '成交金额': %.0f USDT (名义价值)\n", notionalValue)
	fmt.Printf("  '保证金': %.0f USDT (用户投入)\n", userMargin)

	fmt.Println("\n✅ 为什么显示300 USDT是正确的：")
	fmt.Println("1. 用户设置100 USDT作为保证金")
	fmt.Println("2. 系统使用3倍杠杆")
	fmt.Println("3. 名义价值 = 100 × 3 = 300 USDT")
	fmt.Println("4. 页面显示名义价值作为'成交金额'")
	fmt.Println("5. 这代表用户实际控制的合约价值")

	fmt.Println("\n💡 行业标准解释：")
	fmt.Println("• 在期货/杠杆交易中，'成交金额'通常指名义价值")
	fmt.Println("• 而不是用户实际投入的保证金")
	fmt.Println("• 这样可以更好地反映交易的实际规模")

	fmt.Println("\n📊 不同杠杆的对比：")

	testCases := []struct {
		margin   float64
		leverage float64
	}{
		{100, 1},   // 无杠杆
		{100, 2},   // 2倍杠杆
		{100, 3},   // 3倍杠杆 (当前案例)
		{100, 5},   // 5倍杠杆
		{100, 10},  // 10倍杠杆
	}

	fmt.Printf("%-10s %-8s %-12s %-10s\n", "保证金", "杠杆", "名义价值", "显示金额")
	fmt.Printf("%-10s %-8s %-12s %-10s\n", "--------", "------", "----------", "--------")
	for _, tc := range testCases {
		notional := tc.margin * tc.leverage
		fmt.Printf("%-10.0f %-8.0f %-12.0f %-10.0f\n", tc.margin, tc.leverage, notional, notional)
	}

	fmt.Println("\n🎯 结论")

	fmt.Println("\n✅ 页面显示逻辑是正确的：")
	fmt.Println("• 显示300 USDT是名义价值，不是保证金")
	fmt.Println("• 这符合期货交易的行业标准")
	fmt.Println("• 用户设置的100 USDT是保证金投入")

	fmt.Println("\n💡 建议改进：")
	fmt.Println("• 在页面上明确区分'名义价值'和'保证金'")
	fmt.Println("• 添加字段说明或提示")
	fmt.Println("• 让用户更容易理解显示的数据含义")

	fmt.Println("\n📝 技术验证：")
	fmt.Println("• 数据库查询确认：保证金 ≈ 100 USDT")
	fmt.Println("• 计算验证：名义价值 = 100 × 3 = 300 USDT")
	fmt.Println("• 页面显示：300 USDT ✓")

	fmt.Println("\n✨ 最终答案：")
	fmt.Println("页面显示300 USDT是完全正确的！")
	fmt.Println("这是名义价值，不是保证金金额。🎉")
}