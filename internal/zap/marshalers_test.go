package zap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestStrings(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()

	err := enc.AddArray("actions", Strings{"lambda:CreateFunction", "s3:PutObject"})

	assert.Nil(t, err)
	assert.Equal(t, []interface{}{"lambda:CreateFunction", "s3:PutObject"}, enc.Fields["actions"])
}

func TestFields(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()

	err := enc.AddObject("placement", Fields{"subnetId": "subnet-1", "vpcId": "vpc-1"})

	assert.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"subnetId": "subnet-1", "vpcId": "vpc-1"}, enc.Fields["placement"])
}
