package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zrfleet/depotsim/internal/model"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	d := ctx.GetDepot()
	assert.Equal(t, "No depot loaded", d.Name)

	day := ctx.GetServiceDay()
	assert.Equal(t, "No service day started", day.Tag)
}

func TestContext_SetServiceDay(t *testing.T) {
	ctx := NewContext()

	depot := &model.Depot{Name: "Bridgetown River Terminal"}
	day := &model.ServiceDay{Tag: "morning-run", FleetSize: 5}
	ctx.SetServiceDay(day, depot)

	assert.Equal(t, "Bridgetown River Terminal", ctx.GetDepot().Name)
	assert.Equal(t, 5, ctx.GetServiceDay().FleetSize)
}
