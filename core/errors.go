package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持 errors.Is 按 Module + Code 匹配，支持 errors.Unwrap 取出底层原因
//
// 使用场景：
//   - 数据集/特征错误：SCHEMA, EMPTY_DATASET
//   - 检索错误：DIMENSION_MISMATCH, INVALID_INPUT
//   - 索引错误：INDEX_VERSION, INDEX_NOT_LOADED
//   - 推荐错误：UNKNOWN_TRACK
type DomainError struct {
	Code    string // 错误代码（如 "SCHEMA", "UNKNOWN_TRACK"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "vector", "index"）
	Err     error  // 底层原因（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, core.ErrSchema) 这类判断只比较 Module 和 Code。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链上的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Errorf 基于 kind 的 Module/Code 创建带格式化消息的错误。
func Errorf(kind *DomainError, format string, args ...any) *DomainError {
	return &DomainError{
		Module:  kind.Module,
		Code:    kind.Code,
		Message: kind.Message + ": " + fmt.Sprintf(format, args...),
	}
}

// Wrap 基于 kind 的 Module/Code 包装底层错误。
func Wrap(kind *DomainError, err error, format string, args ...any) *DomainError {
	e := Errorf(kind, format, args...)
	e.Err = err
	return e
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐引擎错误代码
	ErrorCodeSchema            = "SCHEMA"             // 数据集缺列/非数值/缺失值
	ErrorCodeEmptyDataset      = "EMPTY_DATASET"      // 数据集为空
	ErrorCodeDimensionMismatch = "DIMENSION_MISMATCH" // 查询向量维度与矩阵列数不一致
	ErrorCodeUnknownTrack      = "UNKNOWN_TRACK"      // 曲目 ID 不在索引中
	ErrorCodeIndexVersion      = "INDEX_VERSION"      // 索引版本戳不匹配
	ErrorCodeIndexNotLoaded    = "INDEX_NOT_LOADED"   // 查询早于索引加载
)

// 模块名称常量
const (
	ModuleStore       = "store"       // 存储模块
	ModuleFeature     = "feature"     // 特征模块
	ModuleVector      = "vector"      // 向量模块
	ModuleIndex       = "index"       // 索引模块
	ModuleRecommender = "recommender" // 推荐模块
)

// 错误哨兵，配合 errors.Is 使用。Module 为空表示匹配任意模块。
var (
	ErrSchema            = &DomainError{Code: ErrorCodeSchema, Message: "schema error"}
	ErrEmptyDataset      = &DomainError{Code: ErrorCodeEmptyDataset, Message: "empty dataset"}
	ErrDimensionMismatch = &DomainError{Code: ErrorCodeDimensionMismatch, Message: "dimension mismatch"}
	ErrUnknownTrack      = &DomainError{Code: ErrorCodeUnknownTrack, Message: "unknown track"}
	ErrIndexVersion      = &DomainError{Code: ErrorCodeIndexVersion, Message: "index version mismatch"}
	ErrIndexNotLoaded    = &DomainError{Code: ErrorCodeIndexNotLoaded, Message: "index not loaded"}
	ErrInvalidInput      = &DomainError{Code: ErrorCodeInvalidInput, Message: "invalid input"}
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsSchemaError 检查错误是否为 SCHEMA
func IsSchemaError(err error) bool { return hasCode(err, ErrorCodeSchema) }

// IsEmptyDataset 检查错误是否为 EMPTY_DATASET
func IsEmptyDataset(err error) bool { return hasCode(err, ErrorCodeEmptyDataset) }

// IsDimensionMismatch 检查错误是否为 DIMENSION_MISMATCH
func IsDimensionMismatch(err error) bool { return hasCode(err, ErrorCodeDimensionMismatch) }

// IsUnknownTrack 检查错误是否为 UNKNOWN_TRACK
func IsUnknownTrack(err error) bool { return hasCode(err, ErrorCodeUnknownTrack) }

// IsIndexVersion 检查错误是否为 INDEX_VERSION
func IsIndexVersion(err error) bool { return hasCode(err, ErrorCodeIndexVersion) }

// IsIndexNotLoaded 检查错误是否为 INDEX_NOT_LOADED
func IsIndexNotLoaded(err error) bool { return hasCode(err, ErrorCodeIndexNotLoaded) }
