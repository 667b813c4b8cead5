package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stride-hr/presence-gateway/internal/model"
)

// For any number of distinct connection ids registered concurrently, the
// registry ends up holding exactly that many records and each record is
// retrievable unchanged.
func TestConcurrentRegistrationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("N concurrent distinct registrations yield N records", prop.ForAll(
		func(n int) bool {
			r := New()

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					r.Register(&model.Connection{
						ID: fmt.Sprintf("conn-%d", i),
						Identity: model.Identity{
							UserID:     fmt.Sprintf("u%d", i),
							EmployeeID: fmt.Sprintf("e%d", i),
						},
					})
				}(i)
			}
			wg.Wait()

			if r.Len() != n {
				return false
			}
			for i := 0; i < n; i++ {
				got, err := r.Get(fmt.Sprintf("conn-%d", i))
				if err != nil || got.Identity.UserID != fmt.Sprintf("u%d", i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 64),
	))

	properties.Property("remove then get always reports not found", prop.ForAll(
		func(id string) bool {
			if id == "" {
				id = "conn"
			}
			r := New()
			if err := r.Register(&model.Connection{
				ID:       id,
				Identity: model.Identity{UserID: "u", EmployeeID: "e"},
			}); err != nil {
				return false
			}
			if _, err := r.Remove(id); err != nil {
				return false
			}
			_, err := r.Get(id)
			return err == model.ErrConnectionNotFound
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
