// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := qerr.New(
		qerr.CodeQueryCompileInvalidInput,
		"depth must be at least 1",
		qerr.FieldEntity("Q42"),
		qerr.Field("depth", 0),
	)

	require.Error(t, err)
	assert.Equal(t, qerr.CodeQueryCompileInvalidInput, qerr.CodeOf(err))
	assert.True(t, qerr.HasCode(err, qerr.CodeQueryCompileInvalidInput))

	fields := qerr.FieldsOf(err)
	assert.Equal(t, "Q42", fields["entity"])
	assert.Equal(t, 0, fields["depth"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := qerr.Errorf(qerr.CodeStoreFlushFailure, "writing labels.json: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, qerr.CodeStoreFlushFailure, qerr.CodeOf(err))
	assert.Contains(t, err.Error(), "writing labels.json")
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesChainAndFields(t *testing.T) {
	root := stderrors.New("connection refused")
	err := qerr.Wrap(root, qerr.CodeGatewayUpstreamFailure, "querying endpoint",
		qerr.FieldEntity("Q5"),
		qerr.FieldBackend("sparql"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, qerr.IsUpstreamFailure(err))
	fields := qerr.FieldsOf(err)
	assert.Equal(t, "Q5", fields["entity"])
	assert.Equal(t, "sparql", fields["backend"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, qerr.Wrap(nil, qerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, qerr.Wrapf(nil, qerr.CodeServerInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, qerr.With(nil, qerr.FieldKind("label")))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := qerr.New(qerr.CodeStoreLoadFailure, "corrupt file")
	withCtx := qerr.With(base, qerr.FieldKind("adjacency"))

	assert.Equal(t, qerr.CodeStoreLoadFailure, qerr.CodeOf(withCtx))
	assert.Equal(t, "adjacency", qerr.FieldsOf(withCtx)["kind"])
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := qerr.With(stderrors.New("something broke"), qerr.FieldEntity("Q1"))
	assert.Equal(t, qerr.CodeServerInternalFailure, qerr.CodeOf(enriched))
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := qerr.New(qerr.CodeStoreDatabaseFailure, "oops",
		qerr.Field("", "dropped"),
		qerr.FieldKind("label"),
	)
	fields := qerr.FieldsOf(err)
	assert.Equal(t, "label", fields["kind"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// CodeOf / HasCode
// ---------------------------------------------------------------------------

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code qerr.Code
		want bool
	}{
		{"matching code", qerr.New(qerr.CodeStoreLoadFailure, "x"), qerr.CodeStoreLoadFailure, true},
		{"non-matching code", qerr.New(qerr.CodeStoreLoadFailure, "x"), qerr.CodeStoreFlushFailure, false},
		{"nil error", nil, qerr.CodeStoreLoadFailure, false},
		{"plain error", stderrors.New("plain"), qerr.CodeServerInternalFailure, false},
		{
			"wrapped coded error returns innermost code",
			qerr.Wrap(qerr.New(qerr.CodeStoreDatabaseFailure, "inner"), qerr.CodeServerInternalFailure, "outer"),
			qerr.CodeStoreDatabaseFailure,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qerr.HasCode(tt.err, tt.code))
		})
	}
}

func TestCodeOfNilAndPlain(t *testing.T) {
	assert.Equal(t, qerr.Code(""), qerr.CodeOf(nil))
	assert.Equal(t, qerr.Code(""), qerr.CodeOf(stderrors.New("plain")))
	assert.Nil(t, qerr.FieldsOf(nil))
}

func TestErrorIsThroughStdlibWrap(t *testing.T) {
	sentinel := stderrors.New("root cause")
	outer := qerr.Wrap(fmt.Errorf("mid: %w", sentinel), qerr.CodeServerInternalFailure, "handler")
	assert.ErrorIs(t, outer, sentinel)
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   qerr.Code
		status int
		check  func(error) bool
	}{
		{"compile invalid input", qerr.CodeQueryCompileInvalidInput, 400, qerr.IsInvalidInput},
		{"mention invalid input", qerr.CodeResolverMentionInvalid, 400, qerr.IsInvalidInput},
		{"pipeline invalid", qerr.CodePipelineInputInvalid, 400, qerr.IsInvalidInput},
		{"config invalid value", qerr.CodeConfigValidateInvalidValue, 400, qerr.IsInvalidInput},
		{"linker provider not found", qerr.CodeLinkerProviderNotFound, 404, qerr.IsNotFound},
		{"embedder unavailable", qerr.CodeEmbedUnavailable, 503, qerr.IsUnavailable},
		{"gateway upstream", qerr.CodeGatewayUpstreamFailure, 502, qerr.IsUpstreamFailure},
		{"embed upstream", qerr.CodeEmbedUpstreamFailure, 502, qerr.IsUpstreamFailure},
		{"internal", qerr.CodeServerInternalFailure, 500, func(err error) bool { return !qerr.IsNotFound(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := qerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, qerr.HTTPStatus(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationNegativeCases(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain"), qerr.New(qerr.CodeStoreDatabaseFailure, "db")} {
		assert.False(t, qerr.IsNotFound(err))
		assert.False(t, qerr.IsInvalidInput(err))
		assert.False(t, qerr.IsTimeout(err))
		assert.False(t, qerr.IsUpstreamFailure(err))
		assert.False(t, qerr.IsUnavailable(err))
	}
}

func TestHTTPStatusDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, qerr.HTTPStatus(nil))
	assert.Equal(t, http.StatusInternalServerError, qerr.HTTPStatus(stderrors.New("oops")))
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := qerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, qerr.CodeServerInternalFailure, qerr.CodeOf(joined))
}
