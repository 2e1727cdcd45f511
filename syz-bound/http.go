// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/syzbound/syzbound/pkg/classify"
	"github.com/syzbound/syzbound/pkg/config"
	"github.com/syzbound/syzbound/pkg/log"
	"github.com/syzbound/syzbound/pkg/report"
	"github.com/syzbound/syzbound/pkg/runner"
	"github.com/syzbound/syzbound/pkg/stat"
)

type httpServer struct {
	runner *runner.Runner
}

func serveHTTP(addr string, r *runner.Runner) {
	serv := &httpServer{runner: r}
	mux := http.NewServeMux()
	handle := func(pattern string, handler func(http.ResponseWriter, *http.Request)) {
		mux.Handle(pattern, handlers.CompressHandler(http.HandlerFunc(handler)))
	}
	handle("/", serv.httpSummary)
	handle("/report", serv.httpReport)
	handle("/log", serv.httpLog)
	handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}).ServeHTTP)
	log.Logf(0, "serving http on http://%v", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("failed to listen on %v: %v", addr, err)
		}
	}()
}

func (serv *httpServer) httpSummary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	rep := serv.runner.Snapshot()
	data := &uiSummary{
		RunID:    rep.RunID,
		Target:   rep.Target,
		Stats:    stat.Collect(stat.All),
		Outcomes: rep.Results,
	}
	for _, class := range classify.Classes() {
		data.Classes = append(data.Classes, uiClass{class.String(), rep.Count(class)})
	}
	executeTemplate(w, summaryTemplate, data)
}

func (serv *httpServer) httpReport(w http.ResponseWriter, r *http.Request) {
	format, contentType := config.JSON, "application/json"
	if r.FormValue("format") == "yaml" {
		format, contentType = config.YAML, "application/yaml"
	}
	data, err := config.Marshal(serv.runner.Snapshot(), format)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal report: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (serv *httpServer) httpLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(log.CachedLogOutput()))
}

func executeTemplate(w http.ResponseWriter, templ *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templ.Execute(w, data); err != nil {
		log.Logf(0, "failed to execute template: %v", err)
	}
}

type uiSummary struct {
	RunID    string
	Target   string
	Stats    []stat.UI
	Classes  []uiClass
	Outcomes []*report.Outcome
}

type uiClass struct {
	Name  string
	Count int
}

var summaryTemplate = template.Must(template.New("").Parse(`
<!doctype html>
<html>
<head>
	<title>syz-bound {{.Target}}</title>
</head>
<body>
<b>run {{.RunID}} on {{.Target}}</b> | <a href="/report">report</a> | <a href="/log">log</a> | <a href="/metrics">metrics</a>
<br><br>
<table>
	{{range $s := $.Stats}}
	<tr><td title="{{$s.Desc}}">{{$s.Name}}</td><td>{{$s.Value}}</td></tr>
	{{end}}
</table>
<br>
<table>
	{{range $c := $.Classes}}
	<tr><td>{{$c.Name}}</td><td>{{$c.Count}}</td></tr>
	{{end}}
</table>
<br>
<table>
	<tr><th>case</th><th>class</th><th>pass</th><th>details</th></tr>
	{{range $o := $.Outcomes}}
	<tr><td>{{$o.ID}}</td><td>{{$o.Class}}</td><td>{{$o.Pass}}</td><td>{{$o.String}}</td></tr>
	{{end}}
</table>
</body>
</html>
`))
