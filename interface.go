// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import (
	"net/url"

	"github.com/gogama/proxyx/request"
	"github.com/gogama/proxyx/response"
)

// Doer executes a request plan as one lineage: every attempt, retry
// and proxy rotation made on behalf of the plan. It returns the final
// execution state, and the error that ended the lineage, if any.
//
// Client is the reference Doer. Other implementations should follow
// the contract documented on Client.Do.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// Dispatcher executes a plan and returns only the wrapped response of
// a successful lineage.
type Dispatcher interface {
	Dispatch(p *request.Plan) (response.Wrapper, error)
}

// Getter issues a GET lineage to a URL.
type Getter interface {
	Get(url string) (*request.Execution, error)
}

// Header issues a HEAD lineage to a URL.
type Header interface {
	Head(url string) (*request.Execution, error)
}

// Poster issues a POST lineage to a URL. The body may be nil, a
// string, a []byte, an io.Reader or an io.ReadCloser.
type Poster interface {
	Post(url, contentType string, body interface{}) (*request.Execution, error)
}

// FormPoster issues a POST lineage whose body is data, URL-encoded.
type FormPoster interface {
	PostForm(url string, data url.Values) (*request.Execution, error)
}

// JSONPoster issues a POST lineage whose body is v encoded as JSON.
type JSONPoster interface {
	PostJSON(url string, v interface{}) (*request.Execution, error)
}

// IdleCloser closes idle keep-alive connections held by whatever sends
// the requests. Connections in use are left alone.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the full client surface. Client implements it, and
// Inflate builds one from any Doer.
type Executor interface {
	Doer
	Dispatcher
	Getter
	Header
	Poster
	FormPoster
	JSONPoster
	IdleCloser
}

// Get executes a GET plan for url through d.
func Get(d Doer, url string) (*request.Execution, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Head executes a HEAD plan for url through d.
func Head(d Doer, url string) (*request.Execution, error) {
	p, err := request.NewPlan("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Post executes a POST plan for url through d, with the given body and
// Content-Type header. The body is read fully before anything is sent,
// so that every attempt of the lineage can resend it.
func Post(d Doer, url, contentType string, body interface{}) (*request.Execution, error) {
	b, err := request.BodyBytes(body)
	if err != nil {
		return nil, err
	}
	p, err := request.NewPlan("POST", url, b)
	if err != nil {
		return nil, err
	}
	p.Header.Set("Content-Type", contentType)
	return d.Do(p)
}

// PostForm executes a POST plan for url through d, with data as the
// plan's Form.
func PostForm(d Doer, url string, data url.Values) (*request.Execution, error) {
	p, err := request.NewPlan("POST", url, nil)
	if err != nil {
		return nil, err
	}
	p.Form = data
	return d.Do(p)
}

// PostJSON executes a POST plan for url through d, with v as the
// plan's JSON body. A value that cannot be encoded fails the lineage
// with a *request.EncodeError before any attempt is made.
func PostJSON(d Doer, url string, v interface{}) (*request.Execution, error) {
	p, err := request.NewPlan("POST", url, nil)
	if err != nil {
		return nil, err
	}
	p.SetJSON(v)
	return d.Do(p)
}

// Dispatch executes p through d and returns the wrapped response. The
// wrapper is nil whenever the error is not.
func Dispatch(d Doer, p *request.Plan) (response.Wrapper, error) {
	e, err := d.Do(p)
	if err != nil {
		return nil, err
	}
	return e.Result, nil
}

// Inflate returns d as an Executor, wrapping it if it is not one
// already. It panics if d is nil.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("proxyx: nil doer")
	}
	if x, ok := d.(Executor); ok {
		return x
	}
	return inflated{d}
}

type inflated struct {
	Doer
}

func (i inflated) Dispatch(p *request.Plan) (response.Wrapper, error) {
	return Dispatch(i.Doer, p)
}

func (i inflated) Get(url string) (*request.Execution, error) {
	return Get(i.Doer, url)
}

func (i inflated) Head(url string) (*request.Execution, error) {
	return Head(i.Doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(i.Doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(i.Doer, url, data)
}

func (i inflated) PostJSON(url string, v interface{}) (*request.Execution, error) {
	return PostJSON(i.Doer, url, v)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.Doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
