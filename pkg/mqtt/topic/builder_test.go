package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("luxsync/v1")

	assert.Equal(t, "luxsync/v1/lampu", b.Collection(CollectionLamps))
	assert.Equal(t, "luxsync/v1/jadwal", b.Collection(CollectionSchedules))
	assert.Equal(t, "luxsync/v1/device_status", b.Collection(CollectionDeviceStatus))
	assert.Equal(t, "luxsync/v1/+", b.Wildcard())
}

func TestBuilderTrimsTrailingSlash(t *testing.T) {
	b := NewBuilder("luxsync/v1/")
	assert.Equal(t, "luxsync/v1/lampu", b.Collection(CollectionLamps))
}

func TestCollectionFromTopic(t *testing.T) {
	b := NewBuilder("luxsync/v1")

	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"luxsync/v1/lampu", "lampu", true},
		{"luxsync/v1/device_status", "device_status", true},
		{"luxsync/v1/lampu/3", "", false},
		{"other/v1/lampu", "", false},
		{"luxsync/v1/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := b.CollectionFromTopic(tt.topic)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
