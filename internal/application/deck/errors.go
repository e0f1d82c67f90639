package deck

import (
	"errors"
	"fmt"

	apperrors "slidekit-ai-api/pkg/errors"
)

// ModelInvocationError 模型调用失败，携带发生失败的分类
type ModelInvocationError struct {
	Category Category
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed for category %s: %v", e.Category, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// GenerationSchemaError 结构化产物不符合 Schema，先前的文稿保持不变
type GenerationSchemaError struct {
	Raw string
	Err error
}

func (e *GenerationSchemaError) Error() string {
	return fmt.Sprintf("generated deck violates schema: %v", e.Err)
}

func (e *GenerationSchemaError) Unwrap() error { return e.Err }

// UnknownCategoryError 分类器返回枚举外的分类，本轮静默终止
// 不向调用方抛出，仅用于日志与诊断
type UnknownCategoryError struct {
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category: %q", e.Value)
}

// UnrecognizedCommandError 未识别的命令，由命令执行器本地处理
type UnrecognizedCommandError struct {
	Command string
}

func (e *UnrecognizedCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Command)
}

// ToAppError 将核心错误转换为带错误码的应用错误，供接口层映射 HTTP 状态
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var modelErr *ModelInvocationError
	if errors.As(err, &modelErr) {
		return apperrors.Wrap(modelErr.Err, apperrors.CodeLLMCallFailed,
			fmt.Sprintf("model invocation failed for category %s", modelErr.Category))
	}

	var schemaErr *GenerationSchemaError
	if errors.As(err, &schemaErr) {
		return apperrors.Wrap(schemaErr.Err, apperrors.CodeSchemaViolation, "generated deck violates schema")
	}

	var categoryErr *UnknownCategoryError
	if errors.As(err, &categoryErr) {
		return apperrors.New(apperrors.CodeUnknownCategory, categoryErr.Error())
	}

	var commandErr *UnrecognizedCommandError
	if errors.As(err, &commandErr) {
		return apperrors.New(apperrors.CodeUnknownCommand, commandErr.Error())
	}

	if appErr := apperrors.AsAppError(err); appErr != nil {
		return appErr
	}
	return apperrors.Wrap(err, apperrors.CodeGenerationFailed, "turn processing failed")
}
