package fetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/matzehuels/placeskit/pkg/fetch"
)

func ExampleFetcher_Get() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[{"name":"Cafe Sydney"}]}`)
	}))
	defer srv.Close()

	f := fetch.New(fetch.WithDelay(0), fetch.WithMaxTries(3))
	res, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	places, _ := res.Places()
	fmt.Println(res.HTTPStatus, res.APIStatus, res.Tries)
	fmt.Println(places.Results[0].Name)
	// Output:
	// 200 OK 1
	// Cafe Sydney
}
