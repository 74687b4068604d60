package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

func TestPrintChange(t *testing.T) {
	ev := entities.ChangeEvent{
		Op:       entities.ChangeCreated,
		Kind:     entities.KindPowerSystem,
		WorldID:  "w1",
		EntityID: "p1",
		At:       time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local),
	}

	var buf bytes.Buffer
	printChange(&buf, ev, 3)
	assert.Equal(t, "10:30:00  created  power system  p1  (3 power systems)\n", buf.String())

	buf.Reset()
	printChange(&buf, ev, -1)
	assert.Equal(t, "10:30:00  created  power system  p1\n", buf.String())
}
