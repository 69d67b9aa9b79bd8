// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBodyBytes(t *testing.T) {
	shared := []byte("bar")
	testCases := []struct {
		name     string
		body     interface{}
		expected []byte
	}{
		{"nil", nil, nil},
		{"string", "foo", []byte("foo")},
		{"bytes", shared, shared},
		{"reader", strings.NewReader("baz"), []byte("baz")},
		{"read closer", io.NopCloser(bytes.NewReader(shared)), shared},
		{"empty reader", strings.NewReader(""), []byte{}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			b, err := BodyBytes(testCase.body)
			assert.NoError(t, err)
			assert.Equal(t, testCase.expected, b)
		})
	}
	t.Run("invalid type", func(t *testing.T) {
		b, err := BodyBytes(10)
		assert.Nil(t, b)
		assert.EqualError(t, err, "proxyx/request: encode raw body: int: "+ErrBodyType.Error())
		var encodeErr *EncodeError
		require.ErrorAs(t, err, &encodeErr)
		assert.ErrorIs(t, err, ErrBodyType)
	})
	t.Run("read error", func(t *testing.T) {
		readErr := errors.New("ham")
		m := &mockReadCloser{}
		m.Test(t)
		m.On("Read", mock.Anything).Return(0, readErr).Once()
		m.On("Close").Return(errors.New("ignored")).Once()
		b, err := BodyBytes(m)
		assert.Nil(t, b)
		assert.Same(t, readErr, err)
		m.AssertExpectations(t)
	})
	t.Run("close error", func(t *testing.T) {
		closeErr := errors.New("eggs")
		m := &mockReadCloser{}
		m.Test(t)
		m.On("Read", mock.Anything).Return(0, io.EOF).Once()
		m.On("Close").Return(closeErr).Once()
		b, err := BodyBytes(m)
		assert.Nil(t, b)
		assert.Same(t, closeErr, err)
		m.AssertExpectations(t)
	})
}

type mockReadCloser struct {
	mock.Mock
}

func (m *mockReadCloser) Read(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *mockReadCloser) Close() error {
	return m.Called().Error(0)
}
