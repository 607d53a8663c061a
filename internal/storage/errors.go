package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchKey 判断错误是否表示对象不存在（NoSuchKey/NotFound）。
func IsNoSuchKey(err error) bool {
	return matchError(err,
		[]string{"nosuchkey", "notfound"},
		"nosuchkey", "specified key does not exist", "not found",
	)
}

// IsNoSuchBucket 判断错误是否表示 Bucket 不存在。
func IsNoSuchBucket(err error) bool {
	return matchError(err,
		[]string{"nosuchbucket"},
		"nosuchbucket", "specified bucket does not exist",
	)
}

// matchError 先比对 MinIO 错误码；网关或代理把错误转成纯文本时再按消息片段匹配。
func matchError(err error, codes []string, fragments ...string) bool {
	if err == nil {
		return false
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		code := strings.ToLower(strings.TrimSpace(resp.Code))
		for _, c := range codes {
			if code == c {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
