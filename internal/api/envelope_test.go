package api

import (
	"encoding/json"
	"testing"

	"dragonvpn-app/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ids   []model.ID
		total int
	}{
		{"BareArray", `[{"id":1},{"id":"2"}]`, []model.ID{"1", "2"}, 2},
		{"EntityArray", `{"entity":[{"id":3}]}`, []model.ID{"3"}, 1},
		{"EntitiesWithTotal", `{"entities":[{"id":4},{"id":5}],"total":12}`, []model.ID{"4", "5"}, 12},
		{"SingleEntityObject", `{"entity":{"id":6}}`, []model.ID{"6"}, 1},
		{"ItemsKey", `{"items":[{"id":7}]}`, []model.ID{"7"}, 1},
		{"Null", `null`, nil, 0},
		{"EmptyObject", `{}`, nil, 0},
		{"NullEntity", `{"entity":null,"total":0}`, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l List[model.Server]
			require.NoError(t, json.Unmarshal([]byte(tt.input), &l))

			var ids []model.ID
			for _, s := range l.Items {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.total, l.Total)
		})
	}

	t.Run("InvalidItems", func(t *testing.T) {
		var l List[model.Server]
		assert.Error(t, json.Unmarshal([]byte(`{"entity":"nope"}`), &l))
	})
}

func TestEntity_UnmarshalJSON(t *testing.T) {
	t.Run("Bare", func(t *testing.T) {
		var e entity[model.Service]
		require.NoError(t, json.Unmarshal([]byte(`{"id":2,"name":"Месяц","duration":30}`), &e))
		assert.Equal(t, model.ID("2"), e.Value.ID)
		assert.Equal(t, 30, e.Value.Duration)
	})

	t.Run("Wrapped", func(t *testing.T) {
		var e entity[model.Service]
		require.NoError(t, json.Unmarshal([]byte(`{"entity":{"id":2,"name":"Месяц"}}`), &e))
		assert.Equal(t, "Месяц", e.Value.Name)
	})
}
