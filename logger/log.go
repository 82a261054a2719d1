/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	logfld "github.com/sabouaram/graphbolt/logger/fields"
	loglvl "github.com/sabouaram/graphbolt/logger/level"
)

type lgr struct {
	m sync.RWMutex
	l loglvl.Level
	f logfld.Fields
	r *atomic.Value // *logrus.Logger, nil means stdlib log
}

func (o *lgr) SetLevel(lvl loglvl.Level) {
	o.m.Lock()
	defer o.m.Unlock()
	o.l = lvl
}

func (o *lgr) GetLevel() loglvl.Level {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.l
}

func (o *lgr) SetFields(f logfld.Fields) {
	o.m.Lock()
	defer o.m.Unlock()
	o.f = f
}

func (o *lgr) GetFields() logfld.Fields {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.f
}

func (o *lgr) WithFields(extra logfld.Fields) Logger {
	n := &lgr{
		m: sync.RWMutex{},
		l: o.GetLevel(),
		f: o.GetFields().Clone().Merge(extra),
		r: o.r,
	}
	return n
}

func (o *lgr) SetLogrus(l *logrus.Logger) {
	o.r.Store(l)
}

func (o *lgr) Debug(message string, fields logfld.Fields, args ...interface{}) {
	o.write(loglvl.DebugLevel, message, nil, fields, args...)
}

func (o *lgr) Info(message string, fields logfld.Fields, args ...interface{}) {
	o.write(loglvl.InfoLevel, message, nil, fields, args...)
}

func (o *lgr) Warning(message string, fields logfld.Fields, args ...interface{}) {
	o.write(loglvl.WarnLevel, message, nil, fields, args...)
}

func (o *lgr) Error(message string, err error, fields logfld.Fields, args ...interface{}) {
	o.write(loglvl.ErrorLevel, message, err, fields, args...)
}

func (o *lgr) write(lvl loglvl.Level, message string, err error, fields logfld.Fields, args ...interface{}) {
	if cur := o.GetLevel(); cur == loglvl.NilLevel || lvl > cur {
		return
	}

	msg := fmt.Sprintf(message, args...)
	all := o.GetFields().Clone().Merge(fields)
	if err != nil {
		all = all.Add("error", err.Error())
	}

	if rl, _ := o.r.Load().(*logrus.Logger); rl != nil {
		rl.WithFields(all.Logrus()).Log(lvl.Logrus(), msg)
		return
	}

	out := log.New(os.Stderr, "["+lvl.Code()+"] ", log.LstdFlags)
	out.Printf("%s %v", msg, all.Logrus())
}
