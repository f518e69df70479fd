package main

import (
	"fmt"
	"strings"
)

// 模拟改进后的cancelConditionalOrderIfNeeded函数逻辑
func main() {
	fmt.Println("🧪 测试改进后的取消订单逻辑")
	fmt.Println("=================================")

	// 模拟不同的API响应场景
	testScenarios := []struct {
		name         string
		cancelCode   int
		cancelBody   string
		cancelErr    error
		expectUpdate bool
		newStatus    string
		description  string
	}{
		{
			name:         "取消成功",
			cancelCode:   200,
			cancelBody:   "",
			cancelErr:    nil,
			expectUpdate: true,
			newStatus:    "cancelled",
			description:  "正常取消成功的情况",
		},
		{
			name:         "订单已执行",
			cancelCode:   400,
			cancelBody:   `{"code": -2011, "msg": "Order has been executed"}`,
			cancelErr:    nil,
			expectUpdate: true,
			newStatus:    "filled",
			description:  "订单已被执行的情况",
		},
		{
			name:         "订单不存在",
			cancelCode:   400,
			cancelBody:   `{"code": -2013, "msg": "Order does not exist"}`,
			cancelErr:    nil,
			expectUpdate: true,
			newStatus:    "cancelled",
			description:  "订单不存在的情况",
		},
		{
			name:         "网络超时",
			cancelCode:   0,
			cancelBody:   "",
			cancelErr:    fmt.Errorf("context deadline exceeded"),
			expectUpdate: false,
			newStatus:    "",
			description:  "网络超时的情况（不更新数据库）",
		},
		{
			name:         "API限流",
			cancelCode:   429,
			cancelBody:   `{"code": -1003, "msg": "Too many requests"}`,
			cancelErr:    nil,
			expectUpdate: false,
			newStatus:    "",
			description:  "API限流的情况（不更新数据库）",
		},
	}

	for _, scenario := range testScenarios {
		fmt.Printf("\n📋 测试场景: %s\n", scenario.name)
		fmt.Printf("   描述: %s\n", scenario.description)
		fmt.Printf("   API响应: code=%d, error=%v\n", scenario.cancelCode, scenario.cancelErr)

		// 模拟改进后的逻辑
		wouldUpdate := false
		status := ""

		if scenario.cancelErr != nil {
			// API调用失败，不更新数据库
			fmt.Printf("   ❌ API调用失败，不更新数据库状态\n")
			wouldUpdate = false
		} else if scenario.cancelCode >= 400 {
			// 检查错误响应
			cancelResp := scenario.cancelBody
			if strings.Contains(cancelResp, "Order does not exist") ||
				strings.Contains(cancelResp, "Order has been executed") ||
				strings.Contains(cancelResp, "Order has been canceled") ||
				strings.Contains(cancelResp, "Unknown order sent") {
				// 可以安全更新状态
				wouldUpdate = true
				status = "cancelled"
				if strings.Contains(cancelResp, "Order has been executed") {
					status = "filled"
				}
				fmt.Printf("   ✅ 检测到可处理的错误响应，更新状态为: %s\n", status)
			} else {
				// 其他错误，不更新数据库
				fmt.Printf("   ❌ 不可处理的错误响应，不更新数据库状态\n")
				wouldUpdate = false
			}
		} else {
			// 取消成功
			wouldUpdate = true
			status = "cancelled"
			fmt.Printf("   ✅ 取消成功，更新状态为: %s\n", status)
		}

		// 验证结果
		if wouldUpdate == scenario.expectUpdate {
			if wouldUpdate && status == scenario.newStatus {
				fmt.Printf("   ✅ 测试通过\n")
			} else if !wouldUpdate {
				fmt.Printf("   ✅ 测试通过\n")
			} else {
				fmt.Printf("   ❌ 状态不匹配，期望: %s, 实际: %s\n", scenario.newStatus, status)
			}
		} else {
			fmt.Printf("   ❌ 更新行为不匹配，期望: %v, 实际: %v\n", scenario.expectUpdate, wouldUpdate)
		}
	}

	fmt.Println("\n🎯 改进总结")
	fmt.Println("=============================")
	fmt.Println("✅ 添加了重试机制（最多3次重试）")
	fmt.Println("✅ 网络错误时不更新数据库，避免状态不一致")
	fmt.Println("✅ API限流时不更新数据库，保护系统稳定")
	fmt.Println("✅ 只有在明确知道订单状态时才更新数据库")
	fmt.Println("✅ 增加了详细的错误日志和调试信息")

	fmt.Println("\n🔧 对FHEUSDT问题的修复效果")
	fmt.Println("=============================")
	fmt.Println("之前的问题:")
	fmt.Println("  ❌ 网络超时导致API失败，但数据库仍被更新")
	fmt.Println("  ❌ 币安网站仍有订单，用户需要手动清理")
	fmt.Println("  ❌ 系统状态与交易所状态不一致")
	fmt.Println("")
	fmt.Println("改进后:")
	fmt.Println("  ✅ 网络超时不更新数据库，保持原状态")
	fmt.Println("  ✅ 系统会自动重试或等待下次同步")
	fmt.Println("  ✅ 确保系统状态与交易所状态一致")

	fmt.Println("\n📋 建议的后续处理")
	fmt.Println("========================")
	fmt.Println("1. 部署改进后的代码")
	fmt.Println("2. 在币安网站手动取消当前存在的条件订单")
	fmt.Println("3. 监控系统日志，确认取消操作正常")
	fmt.Println("4. 如果仍有问题，检查网络连接和API密钥")
}