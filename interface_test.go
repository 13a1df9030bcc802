// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

import (
	"net/url"
	"testing"

	"github.com/gogama/timedhttp/request"

	"github.com/stretchr/testify/assert"

	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/mock"
)

func TestGet(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		expected := &Response{}
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "GET" && o.URL.String() == "foo"
		})).Return(expected, nil).Once()
		r, err := Get(m, "foo")
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("error invalid URL", func(t *testing.T) {
		m := newMockDoer(t)
		r, err := Get(m, ":::")
		assert.Nil(t, r)
		assert.Error(t, err)
		m.AssertNotCalled(t, "Do", mock.Anything)
	})
}

func TestHead(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		expected := &Response{}
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "HEAD" && o.URL.String() == "bar"
		})).Return(expected, nil).Once()
		r, err := Head(m, "bar")
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("error invalid URL", func(t *testing.T) {
		m := newMockDoer(t)
		r, err := Head(m, ":::")
		assert.Nil(t, r)
		assert.Error(t, err)
		m.AssertNotCalled(t, "Do", mock.Anything)
	})
}

func TestPost(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		expected := &Response{}
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "POST" && o.URL.String() == "baz" &&
				o.Header.Get("Content-Type") == "ham" &&
				o.Body == "eggs"
		})).Return(expected, nil).Once()
		r, err := Post(m, "baz", "ham", "eggs")
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("error invalid URL", func(t *testing.T) {
		m := newMockDoer(t)
		r, err := Post(m, ":::", "text/plain", []byte{'a', 'b', 'c'})
		assert.Nil(t, r)
		assert.Error(t, err)
		m.AssertNotCalled(t, "Do", mock.Anything)
	})
	t.Run("error invalid body", func(t *testing.T) {
		m := newMockDoer(t)
		r, err := Post(m, "baz", "text/plain", 123)
		assert.Nil(t, r)
		assert.EqualError(t, err, "timedhttp/request: invalid type (for body use nil, string, []byte or io.Reader)")
		m.AssertNotCalled(t, "Do", mock.Anything)
	})
}

func TestPostForm(t *testing.T) {
	expected := &Response{}
	m := newMockDoer(t)
	m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
		return o.Method == "POST" && o.URL.String() == "poster%20boy" &&
			o.Header.Get("Content-Type") == "application/x-www-form-urlencoded" &&
			o.Body == ""
	})).Return(expected, nil).Once()
	r, err := PostForm(m, "poster boy", url.Values{})
	assert.Same(t, expected, r)
	assert.NoError(t, err)
	m.AssertExpectations(t)
}

func TestInflate(t *testing.T) {
	t.Run("Inflate", func(t *testing.T) {
		t.Run("nil doer", func(t *testing.T) {
			assert.PanicsWithValue(t, "timedhttp: nil doer", func() {
				Inflate(nil)
			})
		})
		t.Run("already an Executor", func(t *testing.T) {
			cl := &Client{}
			x := Inflate(cl)
			assert.Same(t, cl, x)
		})
		t.Run("not yet an Executor", func(t *testing.T) {
			m := newMockDoer(t)
			x := Inflate(m)
			assert.NotSame(t, m, x)
		})
	})
	expected := &Response{}
	t.Run("Do", func(t *testing.T) {
		o, err := request.New("PUT", "http://www.randomcollections.com/widgets/1", "foo")
		require.NotNil(t, o)
		require.NoError(t, err)
		m := newMockDoer(t)
		m.On("Do", o).Return(expected, nil).Once()
		x := Inflate(m)
		r, err := x.Do(o)
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("Get", func(t *testing.T) {
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "GET" && o.URL.String() == "bar"
		})).Return(expected, nil).Once()
		x := Inflate(m)
		r, err := x.Get("bar")
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("Head", func(t *testing.T) {
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "HEAD" && o.URL.String() == "baz"
		})).Return(expected, nil).Once()
		x := Inflate(m)
		r, err := x.Head("baz")
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("Post", func(t *testing.T) {
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "POST" && o.URL.String() == "ham" &&
				o.Header.Get("Content-Type") == "eggs" &&
				o.Body == nil
		})).Return(expected, nil).Once()
		x := Inflate(m)
		r, err := x.Post("ham", "eggs", nil)
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("PostForm", func(t *testing.T) {
		m := newMockDoer(t)
		m.On("Do", mock.MatchedBy(func(o *request.Options) bool {
			return o.Method == "POST" && o.URL.String() == "form" &&
				o.Header.Get("Content-Type") == "application/x-www-form-urlencoded" &&
				o.Body == "x=y"
		})).Return(expected, nil).Once()
		x := Inflate(m)
		r, err := x.PostForm("form", url.Values{"x": []string{"y"}})
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("CloseIdleConnections", func(t *testing.T) {
		t.Run("Doer does not implement IdleCloser", func(t *testing.T) {
			m := newMockDoer(t)
			x := Inflate(m)
			x.CloseIdleConnections()
			m.AssertNotCalled(t, "CloseIdleConnections")
		})
		t.Run("Doer implements IdleCloser", func(t *testing.T) {
			m := newMockDoerWithCloseIdleConnections(t)
			m.On("CloseIdleConnections").Once()
			x := Inflate(m)
			x.CloseIdleConnections()
			m.AssertExpectations(t)
		})
	})
}

type mockDoer struct {
	mock.Mock
}

func newMockDoer(t *testing.T) *mockDoer {
	m := &mockDoer{}
	m.Test(t)
	return m
}

func (m *mockDoer) Do(o *request.Options) (*Response, error) {
	args := m.Called(o)
	r := args.Get(0)
	err := args.Error(1)
	if r == nil {
		return nil, err
	}
	return r.(*Response), err
}

type mockDoerWithCloseIdleConnections struct {
	mockDoer
}

func newMockDoerWithCloseIdleConnections(t *testing.T) *mockDoerWithCloseIdleConnections {
	m := &mockDoerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockDoerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}
