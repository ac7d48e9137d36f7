package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

func TestRollbarLogger_print(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewRollbarLogger(log.New(buf, "", 0), core.NewTestConfig())

	tests := []struct {
		name string
		log  func()
		want string
	}{
		{
			name: "message only",
			log:  func() { logger.Info("started") },
			want: "INFO started\n",
		},
		{
			name: "error and fields",
			log: func() {
				logger.Error("saving poll", errors.New("boom"), map[string]interface{}{"poll": "p1", "actor": "a1"})
			},
			want: "ERROR saving poll error=\"boom\" actor=a1 poll=p1\n",
		},
		{
			name: "user",
			log:  func() { logger.Warn("denied", user.User{ID: "u1"}) },
			want: "WARN denied user=u1\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.log()
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestRollbarLogger_disabledInTests(t *testing.T) {
	conf := core.NewTestConfig()
	conf.RollbarToken = "token"
	logger := NewRollbarLogger(log.New(new(bytes.Buffer), "", 0), conf)
	assert.False(t, logger.enabled)
}
