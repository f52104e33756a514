package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RevokedTokenKey returns the cache key marking a JWT (by JTI) as logged out
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// CourseTreeKey returns the cache key for a course's module/lesson tree
func (r *CacheKeyStruct) CourseTreeKey(courseID int64) string {
	return fmt.Sprintf("course:%d:tree", courseID)
}

// PaymentStatusChannel returns the Redis PubSub channel name for a payment's status updates
func (r *CacheKeyStruct) PaymentStatusChannel(paymentID int64) string {
	return fmt.Sprintf("payment:%d:status", paymentID)
}

var CacheKey = NewCacheKeyStruct()
