package deck

// Category 轮次分类，封闭枚举
type Category string

const (
	CategoryClarification   Category = "clarification"
	CategoryGenerateSlides  Category = "generate_slide_content"
	CategoryUpdateContent   Category = "update_content"
	CategoryGenerateForCode Category = "generate_for_code"
	CategorySlashCommand    Category = "slash_command"
)

// ParseCategory 解析分类字符串，未知值返回 false
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryClarification, CategoryGenerateSlides, CategoryUpdateContent,
		CategoryGenerateForCode, CategorySlashCommand:
		return Category(s), true
	default:
		return Category(s), false
	}
}

// Route 分发目标
type Route string

const (
	// RouteGenerator 交给对应分类的内容生成器
	RouteGenerator Route = "generator"
	// RouteCommand 交给命令执行器
	RouteCommand Route = "command"
	// RouteTerminate 未知分类，本轮静默终止（可观测，不报错）
	RouteTerminate Route = "terminate"
)

// Dispatch 按分类决定分发目标
// 未知分类不是隐式穿透，而是显式的 RouteTerminate 分支
func Dispatch(c Category) Route {
	switch c {
	case CategorySlashCommand:
		return RouteCommand
	case CategoryClarification, CategoryGenerateSlides, CategoryUpdateContent, CategoryGenerateForCode:
		return RouteGenerator
	default:
		return RouteTerminate
	}
}

// IsIncremental 该分类是否以增量流方式产出
func (c Category) IsIncremental() bool {
	return c == CategoryUpdateContent || c == CategoryGenerateForCode
}
