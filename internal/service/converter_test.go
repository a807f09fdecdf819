package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

type stubPublisher struct {
	published []string
	err       error
}

func (s *stubPublisher) PublishBundle(_ context.Context, eventUUID string, _ *stix.Bundle) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, eventUUID)
	return nil
}

type stubIndexer struct {
	indexed map[string]int
	err     error
}

func (s *stubIndexer) IndexObjects(_ context.Context, eventUUID string, objects []stix.Object) error {
	if s.err != nil {
		return s.err
	}
	if s.indexed == nil {
		s.indexed = map[string]int{}
	}
	s.indexed[eventUUID] = len(objects)
	return nil
}

const minimalExport = `{
	"Event": {
		"uuid": "5e8a2b3c-0001-4000-8000-000000000001",
		"info": "converter test",
		"date": "2020-10-25",
		"timestamp": "1603642920",
		"Orgc": {"name": "CIRCL", "uuid": "55f6ea5e-2c60-40e5-964f-47a8950d210f"},
		"Attribute": [
			{
				"uuid": "a1b2c3d4-0001-4000-8000-000000000001",
				"type": "ip-dst",
				"category": "Network activity",
				"value": "198.51.100.1",
				"to_ids": false,
				"timestamp": "1603642920"
			}
		]
	}
}`

func TestConvertSingleEvent(t *testing.T) {
	c := NewConverter(nil)

	results, err := c.Convert(context.Background(), []byte(minimalExport))
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, "5e8a2b3c-0001-4000-8000-000000000001", result.EventUUID)
	assert.Equal(t, "bundle--5e8a2b3c-0001-4000-8000-000000000001", result.Bundle.ID)
	assert.Equal(t, "2.0", result.Bundle.SpecVersion)
	// identity, report plus the address observable
	assert.Len(t, result.Bundle.Objects, 3)
}

func TestConvertWrappedResponse(t *testing.T) {
	c := NewConverter(nil)
	wrapped := `{"response": [` + minimalExport + `]}`

	results, err := c.Convert(context.Background(), []byte(wrapped))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "5e8a2b3c-0001-4000-8000-000000000001", results[0].EventUUID)
}

func TestConvertRejectsEmptyExport(t *testing.T) {
	c := NewConverter(nil)

	_, err := c.Convert(context.Background(), []byte(`{"response": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no events")
}

func TestConvertRejectsMalformedJSON(t *testing.T) {
	c := NewConverter(nil)

	_, err := c.Convert(context.Background(), []byte(`{"Event": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode export")
}

func TestConvertAbortsOnFailedEvent(t *testing.T) {
	publisher := &stubPublisher{}
	c := NewConverter(nil, WithPublisher(publisher))
	// The first event has no uuid and is rejected; the run stops there and
	// the second event is never translated or published.
	export := `{"response": [
		{"Event": {"info": "broken", "timestamp": "1603642920",
			"Orgc": {"name": "CIRCL", "uuid": "55f6ea5e-2c60-40e5-964f-47a8950d210f"}}},
		` + minimalExport + `
	]}`

	results, err := c.Convert(context.Background(), []byte(export))
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Empty(t, publisher.published)
}

func TestConvertFansOutToSinks(t *testing.T) {
	publisher := &stubPublisher{}
	indexer := &stubIndexer{}
	c := NewConverter(nil, WithPublisher(publisher), WithIndexer(indexer))

	results, err := c.Convert(context.Background(), []byte(minimalExport))
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{"5e8a2b3c-0001-4000-8000-000000000001"}, publisher.published)
	assert.Equal(t, 3, indexer.indexed["5e8a2b3c-0001-4000-8000-000000000001"])
}

func TestConvertPublisherFailureFailsEvent(t *testing.T) {
	publisher := &stubPublisher{err: errors.New("broker down")}
	c := NewConverter(nil, WithPublisher(publisher))

	_, err := c.Convert(context.Background(), []byte(minimalExport))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestHealthReportsAttachedSinks(t *testing.T) {
	assert.Equal(t, map[string]string{"status": "ok"}, NewConverter(nil).Health())

	withSinks := NewConverter(nil, WithPublisher(&stubPublisher{}), WithIndexer(&stubIndexer{}))
	assert.Equal(t, map[string]string{
		"status":    "ok",
		"publisher": "attached",
		"indexer":   "attached",
	}, withSinks.Health())
}
