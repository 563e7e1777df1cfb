package worker

import (
	"context"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
)

// HTTPFetcher performs worker fetches over a real HTTP client.
type HTTPFetcher struct {
	client *http.Client
	origin *url.URL
}

func NewHTTPFetcher(client *http.Client, origin *url.URL) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, origin: origin}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target := req.URL
	if !target.IsAbs() && f.origin != nil {
		target = f.origin.ResolveReference(target)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	respType := "opaque"
	if f.origin == nil || target.Host == f.origin.Host {
		respType = "basic"
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Type:       respType,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// Gateway exposes the worker as an HTTP handler fronting the app origin:
// controlled pages get cache-first serving and offline fallbacks even when
// the origin is down. Requests the worker does not intercept are proxied
// straight through.
type Gateway struct {
	worker  *Worker
	fetcher Fetcher
}

func NewGateway(w *Worker, fetcher Fetcher) *Gateway {
	return &Gateway{worker: w, fetcher: fetcher}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := FromHTTP(r, g.worker.config.Origin)

	resp, intercepted := g.worker.HandleFetch(r.Context(), req)
	if !intercepted {
		g.proxy(w, r, req)
		return
	}
	writeResponse(w, resp)
}

// proxy forwards a non-intercepted request directly to the origin.
func (g *Gateway) proxy(w http.ResponseWriter, r *http.Request, req *Request) {
	resp, err := g.fetcher.Fetch(r.Context(), req)
	if err != nil {
		log.Printf("Gateway: Origin fetch failed for %s: %s", req.URL, err.Error())
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}
